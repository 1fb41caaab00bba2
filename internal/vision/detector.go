package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Detector extracts a signature from an image. Implementations are safe for
// concurrent use: extraction reads only the receiver's immutable parameters.
type Detector interface {
	Name() string
	Extract(img image.Image) Signature
}

// NewDetector constructs the named detector strategy. The name must be one
// of orb, brisk, sift, or template.
func NewDetector(name string, maxFeatures int) (Detector, error) {
	if maxFeatures <= 0 {
		maxFeatures = 500
	}
	switch name {
	case "orb":
		return &orbDetector{maxFeatures: maxFeatures}, nil
	case "brisk":
		return &briskDetector{maxFeatures: maxFeatures}, nil
	case "sift":
		return &siftDetector{maxFeatures: maxFeatures}, nil
	case "template":
		return &templateDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", name)
	}
}

// ExtractFile decodes an image file and extracts its signature.
func ExtractFile(det Detector, path string) (Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signature{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Signature{}, fmt.Errorf("decode image %q: %w", path, err)
	}
	return det.Extract(img), nil
}
