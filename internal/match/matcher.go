package match

import (
	"lecturesync/internal/vision"
)

// NoSlide marks an abstaining vote.
const NoSlide = -1

// Vote is the per-frame output of the matcher: the proposed slide for one
// sampled timestamp, or an abstention when the frame is ambiguous.
type Vote struct {
	Timestamp  float64
	SlideIndex int
	Confidence int
}

// Abstained reports whether the vote proposes no slide.
func (v Vote) Abstained() bool {
	return v.SlideIndex == NoSlide
}

// Frame is one sampled video frame with its extracted signature.
type Frame struct {
	Timestamp float64
	Signature vision.Signature
}

// Options tunes the assignment policy.
type Options struct {
	RatioThreshold float64
	MinMatchCount  int
	MinMargin      int
	NormalizeScore bool
}

// Matcher scores frames against a fixed set of slide signatures.
type Matcher struct {
	slides []vision.Signature
	opts   Options
}

// NewMatcher builds a matcher over the slide signatures in deck order.
func NewMatcher(slides []vision.Signature, opts Options) *Matcher {
	if opts.RatioThreshold <= 0 {
		opts.RatioThreshold = 0.75
	}
	if opts.MinMatchCount <= 0 {
		opts.MinMatchCount = 10
	}
	if opts.MinMargin < 0 {
		opts.MinMargin = 0
	}
	return &Matcher{slides: slides, opts: opts}
}

// Vote scores one frame signature against every slide and applies the
// assignment policy. previous is the slide index of the last accepted vote
// (NoSlide when none); it breaks ties inside the margin.
func (m *Matcher) Vote(timestamp float64, frame vision.Signature, previous int) Vote {
	return m.assign(timestamp, m.scoreSlides(frame), previous)
}

// scoreSlides computes the good-match count per slide. This is the expensive
// half of a vote and has no sequential dependency between frames.
func (m *Matcher) scoreSlides(frame vision.Signature) []int {
	if frame.Empty() || len(m.slides) == 0 {
		return nil
	}
	scores := make([]int, len(m.slides))
	for i, slide := range m.slides {
		score := vision.CountGoodMatches(frame, slide, m.opts.RatioThreshold)
		if m.opts.NormalizeScore && slide.Len() > 0 {
			// Scale per thousand keypoints so dense slides lose their edge
			// while scores stay integral.
			score = score * 1000 / slide.Len()
		}
		scores[i] = score
	}
	return scores
}

// assign applies the policy: the best slide must clear the minimum match
// count and beat the runner-up by the margin, with ties inside the margin
// falling back to the previously accepted vote.
func (m *Matcher) assign(timestamp float64, scores []int, previous int) Vote {
	vote := Vote{Timestamp: timestamp, SlideIndex: NoSlide}
	if len(scores) == 0 {
		return vote
	}

	best, runnerUp := -1, -1
	for i, score := range scores {
		switch {
		case best < 0 || score > scores[best]:
			runnerUp = best
			best = i
		case runnerUp < 0 || score > scores[runnerUp]:
			runnerUp = i
		}
	}

	bestScore := scores[best]
	if bestScore < m.opts.MinMatchCount {
		return vote
	}

	margin := bestScore
	if runnerUp >= 0 {
		margin = bestScore - scores[runnerUp]
	}
	if margin >= m.opts.MinMargin && margin > 0 {
		vote.SlideIndex = best
		vote.Confidence = bestScore
		return vote
	}

	// Inside the margin: favor the previously accepted vote when it is one
	// of the contenders, otherwise abstain.
	if previous >= 0 && previous < len(scores) {
		if scores[previous] >= m.opts.MinMatchCount && bestScore-scores[previous] < m.opts.MinMargin {
			vote.SlideIndex = previous
			vote.Confidence = scores[previous]
			return vote
		}
	}
	return vote
}
