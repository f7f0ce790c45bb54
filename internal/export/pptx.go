package export

import (
	"bytes"
	"fmt"
	"net/http"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

// 16:9 slide geometry in EMU.
const (
	emuPerInch  = 914400
	slideWidth  = int64(10.0 * emuPerInch)
	slideHeight = int64(5.625 * emuPerInch)
)

// PPTX builds a deck with one full-bleed image slide per page that has an
// image. Pages without images are skipped.
func PPTX(p *core.Project, r ImageReader) ([]byte, error) {
	imgs, err := images(p, r)
	if err != nil {
		return nil, err
	}

	pres := ppt.New()
	pres.GetDocumentProperties().Title = Title(p)
	pres.GetDocumentProperties().Creator = "deckforge"

	for i, img := range imgs {
		slide := pres.GetActiveSlide()
		if i > 0 {
			slide = pres.CreateSlide()
		}
		shape := slide.CreateDrawingShape()
		shape.SetImageData(img.data, http.DetectContentType(img.data))
		shape.SetOffsetX(0).SetOffsetY(0)
		shape.SetWidth(slideWidth).SetHeight(slideHeight)
	}

	w, err := ppt.NewWriter(pres, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("failed to create pptx writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pptx: %w", err)
	}
	return buf.Bytes(), nil
}
