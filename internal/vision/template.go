package vision

import "image"

// templateDetector is the detector-free fallback: the image is reduced to a
// fixed grid of normalized intensity patches, one descriptor per grid cell.
// Matching then degenerates to comparing patch layouts, which tolerates
// slides with no corner-like structure at all.
type templateDetector struct{}

const (
	templateSize = 64
	templateGrid = 8
)

func (d *templateDetector) Name() string { return "template" }

func (d *templateDetector) Extract(img image.Image) Signature {
	gray := resizeGrayTo(img, templateSize, templateSize)
	sig := Signature{Detector: d.Name()}

	cell := templateSize / templateGrid
	variance := 0.0
	vectors := make([][]float32, 0, templateGrid*templateGrid)
	keypoints := make([]Keypoint, 0, templateGrid*templateGrid)
	for gy := 0; gy < templateGrid; gy++ {
		for gx := 0; gx < templateGrid; gx++ {
			vec := make([]float32, cell*cell)
			var sum float64
			for y := 0; y < cell; y++ {
				for x := 0; x < cell; x++ {
					v := float32(pixelAt(gray, gx*cell+x, gy*cell+y))
					vec[y*cell+x] = v
					sum += float64(v)
				}
			}
			mean := float32(sum / float64(len(vec)))
			for i := range vec {
				vec[i] -= mean
				variance += float64(vec[i]) * float64(vec[i])
			}
			normalize(vec)
			vectors = append(vectors, vec)
			keypoints = append(keypoints, Keypoint{
				X: float64(gx*cell + cell/2),
				Y: float64(gy*cell + cell/2),
			})
		}
	}

	// A flat image has nothing to match on; return an empty signature the
	// matcher will treat as unmatchable.
	if variance < 1.0 {
		return sig
	}
	sig.Keypoints = keypoints
	sig.Vectors = vectors
	return sig
}
