// Package smooth converts the noisy per-frame vote stream into a stable
// sequence of contiguous slide intervals covering the whole video.
//
// The smoother is a debounce filter: a candidate slide must win M
// consecutive non-abstaining votes before the timeline switches to it, and
// the switch is recorded at the timestamp of the first of those votes so the
// cut lands close to the true transition. Abstentions are continuity
// samples: they neither change the current slide nor reset a pending
// candidate. The smoother is stateful over time and must run sequentially.
package smooth

import (
	"lecturesync/internal/lecture"
	"lecturesync/internal/match"
)

// FallbackSlide is assigned to the whole video when no candidate ever
// accumulates enough consecutive votes.
const FallbackSlide = 0

// Smoother debounces slide votes into a timeline.
type Smoother struct {
	votesToSwitch int
}

// New returns a smoother requiring votesToSwitch consecutive votes before a
// slide change is accepted.
func New(votesToSwitch int) *Smoother {
	if votesToSwitch < 1 {
		votesToSwitch = 1
	}
	return &Smoother{votesToSwitch: votesToSwitch}
}

// Intervals reduces an ordered vote sequence to slide intervals covering
// [0, duration] in time order with no gaps, no overlaps, and no two adjacent
// intervals sharing a slide index. When no slide ever wins the debounce the
// whole video is assigned to slide 0 as a defined fallback.
func (s *Smoother) Intervals(votes []match.Vote, duration float64) []lecture.SlideInterval {
	type changePoint struct {
		timestamp float64
		slide     int
	}

	var (
		changes      []changePoint
		current      = match.NoSlide
		pending      = match.NoSlide
		pendingCount int
		pendingFirst float64
	)

	for _, vote := range votes {
		if vote.Abstained() {
			continue
		}
		if vote.SlideIndex == current {
			pending = match.NoSlide
			pendingCount = 0
			continue
		}
		if vote.SlideIndex != pending {
			pending = vote.SlideIndex
			pendingCount = 0
			pendingFirst = vote.Timestamp
		}
		pendingCount++
		if pendingCount >= s.votesToSwitch {
			changes = append(changes, changePoint{timestamp: pendingFirst, slide: pending})
			current = pending
			pending = match.NoSlide
			pendingCount = 0
		}
	}

	if len(changes) == 0 {
		return []lecture.SlideInterval{{SlideIndex: FallbackSlide, Start: 0, End: duration}}
	}

	boundary := func(i int) float64 {
		ts := changes[i].timestamp
		if ts > duration {
			return duration
		}
		return ts
	}

	intervals := make([]lecture.SlideInterval, 0, len(changes))
	for i, change := range changes {
		start := boundary(i)
		if i == 0 {
			start = 0
		}
		end := duration
		if i+1 < len(changes) {
			end = boundary(i + 1)
		}
		if end < start {
			end = start
		}
		intervals = append(intervals, lecture.SlideInterval{
			SlideIndex: change.slide,
			Start:      start,
			End:        end,
		})
	}

	return mergeAdjacent(intervals)
}

// mergeAdjacent collapses neighboring intervals with the same slide index.
// The debounce above should never produce them; the invariant is enforced
// as a post-condition regardless.
func mergeAdjacent(intervals []lecture.SlideInterval) []lecture.SlideInterval {
	merged := intervals[:0]
	for _, interval := range intervals {
		if n := len(merged); n > 0 && merged[n-1].SlideIndex == interval.SlideIndex {
			merged[n-1].End = interval.End
			continue
		}
		merged = append(merged, interval)
	}
	return merged
}
