package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	previewMaxLongEdge = 1600
	previewQuality     = 88
	thumbMaxSide       = 320
	thumbQuality       = 85
)

// derivatives is the pair of JPEG-encoded images generated from an image
// original: a long-edge-capped preview and a fit-within-box thumbnail.
type derivatives struct {
	preview []byte
	thumb   []byte
}

// makeImageDerivatives decodes an image original and produces its preview
// and thumbnail JPEGs. The preview keeps the long edge at most
// previewMaxLongEdge while preserving aspect ratio; the thumbnail fits
// within a thumbMaxSide x thumbMaxSide box without cropping.
func makeImageDerivatives(data []byte) (derivatives, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return derivatives{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var preview image.Image
	if w >= h {
		preview = imaging.Resize(img, min(previewMaxLongEdge, w), 0, imaging.Lanczos)
	} else {
		preview = imaging.Resize(img, 0, min(previewMaxLongEdge, h), imaging.Lanczos)
	}

	var prevBuf bytes.Buffer
	if err := imaging.Encode(&prevBuf, preview, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return derivatives{}, fmt.Errorf("encode preview: %w", err)
	}

	thumb := imaging.Fit(img, thumbMaxSide, thumbMaxSide, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return derivatives{}, fmt.Errorf("encode thumb: %w", err)
	}

	return derivatives{preview: prevBuf.Bytes(), thumb: thumbBuf.Bytes()}, nil
}
