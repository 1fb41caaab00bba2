package vision

// Keypoint is a local image location selected by a detector.
type Keypoint struct {
	X, Y  float64
	Score float64
	Angle float64
}

// BinaryDescriptor is a 256-bit descriptor packed into four words.
type BinaryDescriptor [4]uint64

// Signature is the set of keypoints and descriptors representing one image.
// Binary descriptors and float vectors are mutually exclusive; which side is
// populated depends on the detector that produced the signature.
type Signature struct {
	Detector  string
	Keypoints []Keypoint
	Binary    []BinaryDescriptor
	Vectors   [][]float32
}

// Len returns the descriptor count.
func (s Signature) Len() int {
	if len(s.Binary) > 0 {
		return len(s.Binary)
	}
	return len(s.Vectors)
}

// Empty reports whether the signature carries no descriptors. Empty
// signatures are valid but unmatchable.
func (s Signature) Empty() bool {
	return s.Len() == 0
}
