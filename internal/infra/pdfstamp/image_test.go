package pdfstamp

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestToJPEGFlattensPNG(t *testing.T) {
	out, err := toJPEG(testPNG(t, 40, 20))
	if err != nil {
		t.Fatalf("to jpeg: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("expected transparent pixel to become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestToJPEGScalesLargeImages(t *testing.T) {
	out, err := toJPEG(testPNG(t, 2400, 600))
	if err != nil {
		t.Fatalf("to jpeg: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if format != "jpeg" || cfg.Width != maxImageSide || cfg.Height != 300 {
		t.Fatalf("unexpected output %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestToJPEGRejectsGarbage(t *testing.T) {
	if _, err := toJPEG([]byte("nope")); err == nil {
		t.Fatal("expected decode error")
	}
}
