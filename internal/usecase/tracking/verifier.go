package tracking

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"

	domain "treko/internal/domain/tracking"
)

// MinHeadshotSize is the smallest accepted width and height in pixels.
const MinHeadshotSize = 64

// ImageVerifier accepts any decodable JPEG or PNG of at least
// MinHeadshotSize pixels per side.
type ImageVerifier struct {
	MinSize int
}

// NewImageVerifier returns a verifier using MinHeadshotSize.
func NewImageVerifier() *ImageVerifier {
	return &ImageVerifier{MinSize: MinHeadshotSize}
}

// Verify implements Verifier. Only the image header is decoded.
func (v *ImageVerifier) Verify(_ context.Context, data []byte) (domain.VerificationStatus, float64, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.StatusSuspicious, 0, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width < v.MinSize || cfg.Height < v.MinSize {
		return domain.StatusSuspicious, 0, fmt.Errorf("%s image is %dx%d, want at least %dx%d",
			format, cfg.Width, cfg.Height, v.MinSize, v.MinSize)
	}
	return domain.StatusVerified, 0, nil
}
