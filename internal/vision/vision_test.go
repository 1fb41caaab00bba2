package vision_test

import (
	"image"
	"image/color"
	"reflect"
	"testing"

	"lecturesync/internal/vision"
)

// syntheticSlide draws a distinct arrangement of dark rectangles on a light
// background, roughly the structure of a text slide.
func syntheticSlide(seed int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 235
	}
	blocks := []struct{ x, y, w, h int }{
		{20 + seed*13%80, 20, 120, 14},
		{20, 60 + seed*29%60, 60 + seed*7%40, 10},
		{40 + seed*17%90, 120, 100, 12},
		{30, 170 + seed*11%40, 140, 10},
	}
	for _, b := range blocks {
		for y := b.y; y < b.y+b.h && y < 240; y++ {
			for x := b.x; x < b.x+b.w && x < 320; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(20 + (seed*37+x) % 30)})
			}
		}
	}
	return img
}

func flatImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func TestNewDetectorRejectsUnknownName(t *testing.T) {
	if _, err := vision.NewDetector("akaze", 500); err == nil {
		t.Fatal("expected error for unknown detector")
	}
}

func TestExtractionIsDeterministic(t *testing.T) {
	for _, name := range []string{"orb", "brisk", "sift", "template"} {
		det, err := vision.NewDetector(name, 500)
		if err != nil {
			t.Fatalf("NewDetector(%s): %v", name, err)
		}
		img := syntheticSlide(3)
		first := det.Extract(img)
		second := det.Extract(img)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s extraction not deterministic", name)
		}
		if first.Detector != name {
			t.Fatalf("expected detector name %q, got %q", name, first.Detector)
		}
	}
}

func TestFlatImageYieldsEmptySignature(t *testing.T) {
	for _, name := range []string{"orb", "brisk", "sift", "template"} {
		det, err := vision.NewDetector(name, 500)
		if err != nil {
			t.Fatalf("NewDetector(%s): %v", name, err)
		}
		sig := det.Extract(flatImage())
		if !sig.Empty() {
			t.Fatalf("%s: expected empty signature for flat image, got %d descriptors", name, sig.Len())
		}
	}
}

func TestStructuredImageYieldsDescriptors(t *testing.T) {
	for _, name := range []string{"orb", "brisk", "sift", "template"} {
		det, err := vision.NewDetector(name, 500)
		if err != nil {
			t.Fatalf("NewDetector(%s): %v", name, err)
		}
		sig := det.Extract(syntheticSlide(1))
		if sig.Empty() {
			t.Fatalf("%s: expected descriptors for structured image", name)
		}
		if len(sig.Keypoints) == 0 {
			t.Fatalf("%s: expected keypoints", name)
		}
	}
}

func TestCountGoodMatchesEmptyAndMismatched(t *testing.T) {
	a := vision.Signature{Detector: "orb", Binary: []vision.BinaryDescriptor{{1, 2, 3, 4}, {5, 6, 7, 8}}}
	empty := vision.Signature{Detector: "orb"}

	if got := vision.CountGoodMatches(empty, a, 0.75); got != 0 {
		t.Fatalf("empty frame should score 0, got %d", got)
	}
	if got := vision.CountGoodMatches(a, empty, 0.75); got != 0 {
		t.Fatalf("empty slide should score 0, got %d", got)
	}

	single := vision.Signature{Detector: "orb", Binary: []vision.BinaryDescriptor{{1, 2, 3, 4}}}
	if got := vision.CountGoodMatches(a, single, 0.75); got != 0 {
		t.Fatalf("single-descriptor slide has no second neighbor, want 0, got %d", got)
	}

	other := vision.Signature{Detector: "sift", Vectors: [][]float32{{1, 0}, {0, 1}}}
	if got := vision.CountGoodMatches(a, other, 0.75); got != 0 {
		t.Fatalf("mismatched detectors should score 0, got %d", got)
	}
}

func TestCountGoodMatchesRatioTest(t *testing.T) {
	slide := vision.Signature{Detector: "orb", Binary: []vision.BinaryDescriptor{
		{0x0F, 0, 0, 0},
		{0xFF00, 0, 0, 0},
		{0, 0xFFFF, 0, 0},
	}}

	// An exact copy of a slide descriptor has distance 0 to its source and a
	// large distance to the others, so it passes the ratio test.
	frame := vision.Signature{Detector: "orb", Binary: []vision.BinaryDescriptor{{0x0F, 0, 0, 0}}}
	if got := vision.CountGoodMatches(frame, slide, 0.75); got != 1 {
		t.Fatalf("exact copy should match, got %d", got)
	}

	// A descriptor equidistant from two slide descriptors fails the test.
	ambiguous := vision.Signature{Detector: "orb", Binary: []vision.BinaryDescriptor{{0x0F ^ 0xFF00, 0, 0, 0}}}
	if got := vision.CountGoodMatches(ambiguous, slide, 0.75); got != 0 {
		t.Fatalf("ambiguous descriptor should be rejected, got %d", got)
	}
}

func TestSelfMatchScoresPositive(t *testing.T) {
	det, err := vision.NewDetector("orb", 500)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	sig := det.Extract(syntheticSlide(1))
	if sig.Len() < 2 {
		t.Fatalf("expected at least 2 descriptors, got %d", sig.Len())
	}
	if score := vision.CountGoodMatches(sig, sig, 0.75); score == 0 {
		t.Fatal("expected a structured image to match itself")
	}
}
