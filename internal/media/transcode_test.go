package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func syntheticPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode synthetic png: %v", err)
	}
	return buf.Bytes()
}

func TestMakeImageDerivativesShrinksWideImage(t *testing.T) {
	data := syntheticPNG(t, 2000, 1000)
	d, err := makeImageDerivatives(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prevImg, err := imaging.Decode(bytes.NewReader(d.preview))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	b := prevImg.Bounds()
	if b.Dx() != previewMaxLongEdge {
		t.Errorf("preview long edge = %d, want %d", b.Dx(), previewMaxLongEdge)
	}
	if b.Dy() >= 1000 {
		t.Errorf("preview should be proportionally shrunk, got height %d", b.Dy())
	}

	thumbImg, err := imaging.Decode(bytes.NewReader(d.thumb))
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	tb := thumbImg.Bounds()
	if tb.Dx() > thumbMaxSide || tb.Dy() > thumbMaxSide {
		t.Errorf("thumbnail %dx%d exceeds %dx%d box", tb.Dx(), tb.Dy(), thumbMaxSide, thumbMaxSide)
	}
}

func TestMakeImageDerivativesDoesNotUpscaleSmallImage(t *testing.T) {
	data := syntheticPNG(t, 100, 80)
	d, err := makeImageDerivatives(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prevImg, err := imaging.Decode(bytes.NewReader(d.preview))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	b := prevImg.Bounds()
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("small image should pass through unscaled, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestMakeImageDerivativesRejectsGarbageInput(t *testing.T) {
	_, err := makeImageDerivatives([]byte("not an image"))
	if err == nil {
		t.Fatal("expected an error decoding non-image bytes")
	}
}
