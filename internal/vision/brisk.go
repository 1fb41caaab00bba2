package vision

import (
	"image"
	"math"
	"sort"
)

// briskDetector uses the same segment-test corners as orb but describes
// them with a concentric sampling pattern: points on fixed rings around the
// keypoint, compared pairwise across short distances.
type briskDetector struct {
	maxFeatures int
}

const (
	briskThreshold   = 25
	briskPatchRadius = 13
)

type briskSample struct {
	x, y float64
}

var briskSamples = makeBriskSamples()

// briskPairs are the 256 short-distance sample pairs whose intensity
// comparisons form the descriptor bits.
var briskPairs = makeBriskPairs(briskSamples)

func (d *briskDetector) Name() string { return "brisk" }

func (d *briskDetector) Extract(img image.Image) Signature {
	gray := boxBlur(toGray(img))
	keypoints := detectCorners(gray, briskThreshold, briskPatchRadius, d.maxFeatures)

	sig := Signature{Detector: d.Name(), Keypoints: keypoints}
	if len(keypoints) == 0 {
		return sig
	}

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	sig.Binary = make([]BinaryDescriptor, len(keypoints))
	for i, kp := range keypoints {
		sin, cos := math.Sincos(kp.Angle)
		values := make([]int, len(briskSamples))
		for j, sample := range briskSamples {
			sx := sample.x*cos - sample.y*sin
			sy := sample.x*sin + sample.y*cos
			values[j] = sampleClamped(gray, w, h, int(kp.X)+int(math.Round(sx)), int(kp.Y)+int(math.Round(sy)))
		}
		var desc BinaryDescriptor
		for bit, pair := range briskPairs {
			if values[pair[0]] > values[pair[1]] {
				desc[bit/64] |= 1 << (bit % 64)
			}
		}
		sig.Binary[i] = desc
	}
	return sig
}

// makeBriskSamples lays out the center plus four rings of sample points.
func makeBriskSamples() []briskSample {
	rings := []struct {
		radius float64
		count  int
	}{
		{0, 1},
		{3, 8},
		{6, 10},
		{9, 14},
		{12, 18},
	}
	var samples []briskSample
	for _, ring := range rings {
		if ring.count == 1 {
			samples = append(samples, briskSample{0, 0})
			continue
		}
		for i := 0; i < ring.count; i++ {
			angle := 2 * math.Pi * float64(i) / float64(ring.count)
			samples = append(samples, briskSample{
				x: ring.radius * math.Cos(angle),
				y: ring.radius * math.Sin(angle),
			})
		}
	}
	return samples
}

// makeBriskPairs picks the 256 closest distinct sample pairs, scanning in a
// fixed order so the descriptor layout never changes between runs.
func makeBriskPairs(samples []briskSample) [256][2]int {
	type candidate struct {
		i, j int
		dist float64
	}
	var candidates []candidate
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			dx := samples[i].x - samples[j].x
			dy := samples[i].y - samples[j].y
			candidates = append(candidates, candidate{i, j, math.Hypot(dx, dy)})
		}
	}
	// Stable selection by distance, then scan order.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].dist < candidates[b].dist
	})

	var pairs [256][2]int
	for i := 0; i < 256 && i < len(candidates); i++ {
		pairs[i] = [2]int{candidates[i].i, candidates[i].j}
	}
	return pairs
}
