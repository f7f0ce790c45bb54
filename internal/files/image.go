package files

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrBadAspect is returned for aspect ratios not of the form "W:H".
var ErrBadAspect = errors.New("invalid aspect ratio")

// ThumbnailWidth is the width of generated page thumbnails.
const ThumbnailWidth = 480

// ParseAspect parses "16:9" into its width and height terms.
func ParseAspect(s string) (w, h int, err error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadAspect, s)
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(left))
	h, err2 := strconv.Atoi(strings.TrimSpace(right))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadAspect, s)
	}
	return w, h, nil
}

// DecodeImage decodes png, jpeg, gif or webp data.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// CropToAspect center-crops img to the w:h ratio. Images already within
// one pixel of the ratio are returned unchanged.
func CropToAspect(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	iw, ih := b.Dx(), b.Dy()
	if iw == 0 || ih == 0 {
		return img
	}

	cw, ch := iw, iw*h/w
	if ch > ih {
		cw, ch = ih*w/h, ih
	}
	if abs(cw-iw) <= 1 && abs(ch-ih) <= 1 {
		return img
	}

	x0 := b.Min.X + (iw-cw)/2
	y0 := b.Min.Y + (ih-ch)/2
	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return dst
}

// Resize scales img to the given width, keeping its proportions.
func Resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width || width <= 0 {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavedImage describes an image written by SaveImage.
type SavedImage struct {
	Path      string
	Thumbnail string
	Width     int
	Height    int
}

// SaveImage decodes data, crops it to aspect (skipped when empty), and
// stores it as PNG under dir/name.png with a name_thumb.png thumbnail.
func (s *Storage) SaveImage(dir, name string, data []byte, aspect string) (*SavedImage, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if aspect != "" {
		w, h, err := ParseAspect(aspect)
		if err != nil {
			return nil, err
		}
		img = CropToAspect(img, w, h)
	}

	full, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	rel, err := s.Write(dir, name+".png", full)
	if err != nil {
		return nil, err
	}

	thumb, err := EncodePNG(Resize(img, ThumbnailWidth))
	if err != nil {
		return nil, err
	}
	thumbRel, err := s.Write(dir, name+"_thumb.png", thumb)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &SavedImage{Path: rel, Thumbnail: thumbRel, Width: b.Dx(), Height: b.Dy()}, nil
}

// ThumbnailPath returns the thumbnail path stored next to an image.
func ThumbnailPath(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(rel, ".png") + "_thumb.png"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
