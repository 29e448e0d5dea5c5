package pdfstamp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	maxImageSide = 1200
	jpegQuality  = 90
)

// toJPEG converts a signature image to a baseline RGB JPEG, the only form
// the appearance stream embeds. Transparent pixels become white and large
// images are scaled down.
func toJPEG(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode signature image: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("signature image is empty")
	}
	if format == "jpeg" && src.ColorModel() == color.YCbCrModel && !oversized(bounds) {
		return data, nil
	}

	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, bounds.Min, draw.Over)

	var out image.Image = flat
	if oversized(bounds) {
		w, h := scaledSize(bounds.Dx(), bounds.Dy())
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), flat, flat.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode signature image: %w", err)
	}
	return buf.Bytes(), nil
}

func oversized(b image.Rectangle) bool {
	return b.Dx() > maxImageSide || b.Dy() > maxImageSide
}

func scaledSize(w, h int) (int, int) {
	if w >= h {
		return maxImageSide, max(1, h*maxImageSide/w)
	}
	return max(1, w*maxImageSide/h), maxImageSide
}
