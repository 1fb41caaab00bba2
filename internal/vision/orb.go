package vision

import (
	"image"
	"math"
)

// orbDetector pairs a FAST corner detector with oriented 256-bit binary
// descriptors built from pairwise intensity comparisons.
type orbDetector struct {
	maxFeatures int
}

const (
	orbThreshold   = 20
	orbPatchRadius = 15
)

// orbPattern is the fixed set of 256 comparison point pairs inside the
// descriptor patch, generated once from a deterministic sequence so every
// extraction uses the same pattern.
var orbPattern = makePairPattern(0x9E3779B97F4A7C15, orbPatchRadius-1)

func (d *orbDetector) Name() string { return "orb" }

func (d *orbDetector) Extract(img image.Image) Signature {
	gray := boxBlur(toGray(img))
	keypoints := detectCorners(gray, orbThreshold, orbPatchRadius, d.maxFeatures)

	sig := Signature{Detector: d.Name(), Keypoints: keypoints}
	if len(keypoints) == 0 {
		return sig
	}
	sig.Binary = make([]BinaryDescriptor, len(keypoints))
	for i, kp := range keypoints {
		sig.Binary[i] = describePatch(gray, kp, orbPattern)
	}
	return sig
}

// describePatch compares rotated point pairs around the keypoint. A bit is
// set when the first sample is brighter than the second.
func describePatch(img *image.Gray, kp Keypoint, pattern [256][4]int) BinaryDescriptor {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	sin, cos := math.Sincos(kp.Angle)

	var desc BinaryDescriptor
	for bit, pair := range pattern {
		x1 := rotateCoord(float64(pair[0]), float64(pair[1]), cos, sin)
		y1 := rotateCoord(float64(pair[1]), -float64(pair[0]), cos, sin)
		x2 := rotateCoord(float64(pair[2]), float64(pair[3]), cos, sin)
		y2 := rotateCoord(float64(pair[3]), -float64(pair[2]), cos, sin)

		p1 := sampleClamped(img, w, h, int(kp.X)+x1, int(kp.Y)+y1)
		p2 := sampleClamped(img, w, h, int(kp.X)+x2, int(kp.Y)+y2)
		if p1 > p2 {
			desc[bit/64] |= 1 << (bit % 64)
		}
	}
	return desc
}

func rotateCoord(a, b, cos, sin float64) int {
	return int(math.Round(a*cos - b*sin))
}

func sampleClamped(img *image.Gray, w, h, x, y int) int {
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return pixelAt(img, x, y)
}

// makePairPattern derives 256 point pairs within the patch radius from a
// splitmix-style generator. The seed fixes the pattern for all time; two
// images described with different patterns would be incomparable.
func makePairPattern(seed uint64, radius int) [256][4]int {
	var pattern [256][4]int
	state := seed
	next := func() int {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z ^= z >> 31
		span := 2*radius + 1
		return int(z%uint64(span)) - radius
	}
	for i := range pattern {
		pattern[i] = [4]int{next(), next(), next(), next()}
	}
	return pattern
}
