// Package service holds the dashboard's business logic between the HTTP
// handlers and the REST API.
//
// This file implements preview generation for staged product images.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Preview dimensions and quality.
const (
	PreviewMaxWidth    = 320
	PreviewMaxHeight   = 320
	PreviewJPEGQuality = 80
)

// =============================================================================
// Interface Definition
// =============================================================================

// ThumbnailProcessor renders previews of uploaded images.
type ThumbnailProcessor interface {
	// GenerateThumbnail returns a JPEG that fits within maxWidth x maxHeight,
	// plus the original width and height.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

// =============================================================================
// Implementation
// =============================================================================

type imagingProcessor struct{}

// NewImagingProcessor creates a processor backed by the imaging library.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(PreviewJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
