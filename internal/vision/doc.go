// Package vision builds matchable visual signatures for slide images and
// sampled video frames, and scores signature pairs with a k=2 nearest
// neighbor search plus ratio test.
//
// Four detector strategies are provided: orb and brisk produce 256-bit
// binary descriptors compared by Hamming distance, sift produces 128-d
// float descriptors compared by Euclidean distance, and template produces a
// dense grid of patch descriptors for detector-free matching. A detector is
// selected once per pipeline run; slide and frame signatures must come from
// the same detector to be comparable.
//
// Extraction is deterministic for a fixed image and detector. Near-blank
// images produce an empty but valid signature; the matcher treats empty
// signatures as unmatchable rather than erroring.
package vision
