// Package match scores sampled video frames against slide signatures and
// emits one slide vote per frame.
//
// A vote names the best-scoring slide only when the score clears an absolute
// minimum match count and beats the runner-up by a configured margin;
// otherwise the frame abstains. Ties inside the margin fall back to the
// previously accepted vote to damp flicker at slide boundaries. Scoring is a
// pure function of the frame and slide signatures, so frames are fanned out
// across a bounded worker pool and the votes re-sorted into timestamp order
// afterwards.
package match
