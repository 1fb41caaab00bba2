package vision

import (
	"image"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// maxWorkingDim bounds the working resolution for feature extraction.
// Slides and frames are scaled down to comparable sizes so descriptor
// distances stay meaningful across sources with different resolutions.
const maxWorkingDim = 640

// toGray converts and downscales an image into the working grayscale space.
func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	scale := 1.0
	if longest := max(width, height); longest > maxWorkingDim {
		scale = float64(maxWorkingDim) / float64(longest)
	}
	outW := int(math.Round(float64(width) * scale))
	outH := int(math.Round(float64(height) * scale))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	gray := image.NewGray(image.Rect(0, 0, outW, outH))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, bounds, xdraw.Src, nil)
	return gray
}

// resizeGrayTo converts an image to grayscale at an exact target size.
func resizeGrayTo(src image.Image, width, height int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return gray
}

// boxBlur applies one 3x3 box filter pass. Light smoothing before corner
// detection suppresses single-pixel noise without erasing slide text edges.
func boxBlur(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return src
	}
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var sum int
			for dy := -1; dy <= 1; dy++ {
				row := (y+dy)*src.Stride + x - 1
				sum += int(src.Pix[row]) + int(src.Pix[row+1]) + int(src.Pix[row+2])
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum / 9)
		}
	}
	return dst
}

func pixelAt(img *image.Gray, x, y int) int {
	return int(img.Pix[y*img.Stride+x])
}

// fastCircle is the 16-point Bresenham circle of radius 3 used by the
// segment test detector.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// detectCorners runs a FAST-style segment test with non-maximum suppression
// and returns up to maxFeatures corners ordered by strength. border reserves
// margin for descriptor sampling around each corner.
func detectCorners(img *image.Gray, threshold, border, maxFeatures int) []Keypoint {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	margin := border
	if margin < 3 {
		margin = 3
	}
	if w <= 2*margin || h <= 2*margin {
		return nil
	}

	scores := make([]float64, w*h)
	var candidates []Keypoint
	for y := margin; y < h-margin; y++ {
		for x := margin; x < w-margin; x++ {
			score, ok := segmentTest(img, x, y, threshold)
			if !ok {
				continue
			}
			scores[y*w+x] = score
			candidates = append(candidates, Keypoint{X: float64(x), Y: float64(y), Score: score})
		}
	}

	// 3x3 non-maximum suppression keeps one corner per local neighborhood.
	kept := candidates[:0]
	for _, kp := range candidates {
		x, y := int(kp.X), int(kp.Y)
		maximal := true
		for dy := -1; dy <= 1 && maximal; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if scores[(y+dy)*w+x+dx] > kp.Score {
					maximal = false
					break
				}
			}
		}
		if maximal {
			kept = append(kept, kp)
		}
	}

	sortKeypointsByScore(kept)
	if maxFeatures > 0 && len(kept) > maxFeatures {
		kept = kept[:maxFeatures]
	}
	for i := range kept {
		kept[i].Angle = orientation(img, int(kept[i].X), int(kept[i].Y))
	}
	return kept
}

// segmentTest checks whether 9 contiguous circle pixels are all brighter or
// all darker than the center by the threshold, returning a strength score.
func segmentTest(img *image.Gray, x, y, threshold int) (float64, bool) {
	center := pixelAt(img, x, y)
	var brighter, darker [16]bool
	var diffSum int
	for i, offset := range fastCircle {
		p := pixelAt(img, x+offset[0], y+offset[1])
		d := p - center
		if d > threshold {
			brighter[i] = true
		} else if d < -threshold {
			darker[i] = true
		}
		if d < 0 {
			d = -d
		}
		diffSum += d
	}
	if hasContiguousArc(brighter, 9) || hasContiguousArc(darker, 9) {
		return float64(diffSum), true
	}
	return 0, false
}

func hasContiguousArc(flags [16]bool, need int) bool {
	run := 0
	// Scan twice around the circle so wrap-around arcs count.
	for i := 0; i < 32; i++ {
		if flags[i%16] {
			run++
			if run >= need {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// orientation computes the intensity-centroid angle of the patch around a
// corner, used to rotate binary descriptor patterns.
func orientation(img *image.Gray, x, y int) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	const radius = 7
	var m01, m10 float64
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			px, py := x+dx, y+dy
			if px < 0 || py < 0 || px >= w || py >= h {
				continue
			}
			v := float64(pixelAt(img, px, py))
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

func sortKeypointsByScore(kps []Keypoint) {
	// Stable sort keeps ties in scan order, which keeps extraction
	// deterministic for a fixed image.
	sort.SliceStable(kps, func(i, j int) bool {
		return kps[i].Score > kps[j].Score
	})
}
