package vision

import (
	"math"
	"math/bits"
)

// CountGoodMatches runs the k=2 nearest neighbor search from every frame
// descriptor into the slide's descriptor set and counts the pairs that
// survive the ratio test: the best match must be strictly closer than
// ratio times the second best.
//
// Empty signatures on either side are unmatchable and score zero, as does a
// slide with fewer than two descriptors (no second neighbor to compare
// against). Signatures from different detectors never match.
func CountGoodMatches(frame, slide Signature, ratio float64) int {
	if frame.Empty() || slide.Len() < 2 || frame.Detector != slide.Detector {
		return 0
	}

	if len(frame.Binary) > 0 {
		return countBinaryMatches(frame.Binary, slide.Binary, ratio)
	}
	return countVectorMatches(frame.Vectors, slide.Vectors, ratio)
}

func countBinaryMatches(frame, slide []BinaryDescriptor, ratio float64) int {
	good := 0
	for _, fd := range frame {
		best, second := math.MaxInt32, math.MaxInt32
		for _, sd := range slide {
			d := hammingDistance(fd, sd)
			if d < best {
				second = best
				best = d
			} else if d < second {
				second = d
			}
		}
		if float64(best) < ratio*float64(second) {
			good++
		}
	}
	return good
}

func countVectorMatches(frame, slide [][]float32, ratio float64) int {
	good := 0
	for _, fd := range frame {
		best, second := math.MaxFloat64, math.MaxFloat64
		for _, sd := range slide {
			d := squaredDistance(fd, sd)
			if d < best {
				second = best
				best = d
			} else if d < second {
				second = d
			}
		}
		// Distances are squared, so the ratio applies squared too.
		if best < ratio*ratio*second {
			good++
		}
	}
	return good
}

func hammingDistance(a, b BinaryDescriptor) int {
	return bits.OnesCount64(a[0]^b[0]) +
		bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) +
		bits.OnesCount64(a[3]^b[3])
}

func squaredDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
