package export

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// pdfPageWidth is the long edge of every PDF page in points (11in).
const pdfPageWidth = 792.0

// PDF builds a document with one page per image, sized to the image's
// aspect ratio.
func PDF(p *core.Project, r ImageReader) ([]byte, error) {
	imgs, err := images(p, r)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pdfPageWidth, Ht: pdfPageWidth * 9 / 16},
	})
	pdf.SetTitle(Title(p), true)
	pdf.SetCreator("deckforge", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, img := range imgs {
		data, typ, w, h, err := pdfImage(img.data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", img.page.OrderIndex+1, err)
		}

		pw, ph := pdfPageSize(w, h)
		pdf.AddPageFormat(pdfOrientation(pw, ph), gofpdf.SizeType{Wd: min(pw, ph), Ht: max(pw, ph)})

		name := fmt.Sprintf("page-%d", i)
		opts := gofpdf.ImageOptions{ImageType: typ}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, pw, ph, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfPageSize scales an image so its long edge is pdfPageWidth.
func pdfPageSize(w, h int) (float64, float64) {
	if w >= h {
		return pdfPageWidth, pdfPageWidth * float64(h) / float64(w)
	}
	return pdfPageWidth * float64(w) / float64(h), pdfPageWidth
}

// pdfOrientation picks the orientation for a page of the given size.
// gofpdf takes the size short edge first and swaps it for "L".
func pdfOrientation(pw, ph float64) string {
	if pw > ph {
		return "L"
	}
	return "P"
}

// pdfImage returns data in a format gofpdf can embed, re-encoding to PNG
// when needed, along with the image dimensions.
func pdfImage(data []byte) ([]byte, string, int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("failed to read image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", 0, 0, core.Invalidf("empty image")
	}

	switch format {
	case "png":
		return data, "PNG", cfg.Width, cfg.Height, nil
	case "jpeg":
		return data, "JPG", cfg.Width, cfg.Height, nil
	}

	img, _, err := files.DecodeImage(data)
	if err != nil {
		return nil, "", 0, 0, err
	}
	png, err := files.EncodePNG(img)
	if err != nil {
		return nil, "", 0, 0, err
	}
	return png, "PNG", cfg.Width, cfg.Height, nil
}
