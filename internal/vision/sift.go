package vision

import (
	"image"
	"math"
)

// siftDetector describes segment-test corners with 128-d gradient
// orientation histograms: a 4x4 cell grid around the keypoint, 8 orientation
// bins per cell, rotated to the keypoint orientation and L2-normalized.
type siftDetector struct {
	maxFeatures int
}

const (
	siftThreshold   = 15
	siftPatchRadius = 8
	siftCells       = 4
	siftBins        = 8
)

func (d *siftDetector) Name() string { return "sift" }

func (d *siftDetector) Extract(img image.Image) Signature {
	gray := boxBlur(toGray(img))
	keypoints := detectCorners(gray, siftThreshold, siftPatchRadius+1, d.maxFeatures)

	sig := Signature{Detector: d.Name(), Keypoints: keypoints}
	if len(keypoints) == 0 {
		return sig
	}
	sig.Vectors = make([][]float32, len(keypoints))
	for i, kp := range keypoints {
		sig.Vectors[i] = describeGradients(gray, kp)
	}
	return sig
}

func describeGradients(img *image.Gray, kp Keypoint) []float32 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	desc := make([]float32, siftCells*siftCells*siftBins)

	cx, cy := int(kp.X), int(kp.Y)
	cellSpan := 2 * siftPatchRadius / siftCells
	for dy := -siftPatchRadius; dy < siftPatchRadius; dy++ {
		for dx := -siftPatchRadius; dx < siftPatchRadius; dx++ {
			x, y := cx+dx, cy+dy
			if x < 1 || y < 1 || x >= w-1 || y >= h-1 {
				continue
			}
			gx := float64(pixelAt(img, x+1, y) - pixelAt(img, x-1, y))
			gy := float64(pixelAt(img, x, y+1) - pixelAt(img, x, y-1))
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			// Orientation relative to the keypoint angle.
			angle := math.Atan2(gy, gx) - kp.Angle
			for angle < 0 {
				angle += 2 * math.Pi
			}
			bin := int(angle/(2*math.Pi)*siftBins) % siftBins

			cellX := (dx + siftPatchRadius) / cellSpan
			cellY := (dy + siftPatchRadius) / cellSpan
			if cellX >= siftCells {
				cellX = siftCells - 1
			}
			if cellY >= siftCells {
				cellY = siftCells - 1
			}
			desc[(cellY*siftCells+cellX)*siftBins+bin] += float32(mag)
		}
	}

	normalize(desc)
	// Clamp dominant directions and renormalize, the usual illumination guard.
	for i, v := range desc {
		if v > 0.2 {
			desc[i] = 0.2
		}
	}
	normalize(desc)
	return desc
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
