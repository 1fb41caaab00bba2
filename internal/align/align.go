// Package align maps transcript segments onto the slide interval timeline.
//
// Each segment takes the slide of the interval containing its start time.
// Start times before the first interval or at or past the last interval's
// end are clamped to the nearest interval, covering clock skew between the
// transcription provider and the video clock. Intervals are sorted and
// non-overlapping by construction, so a binary search suffices.
package align

import (
	"sort"

	"lecturesync/internal/lecture"
)

// SlideAt returns the slide index of the interval containing t. The second
// return is false only when the interval list is empty.
func SlideAt(intervals []lecture.SlideInterval, t float64) (int, bool) {
	if len(intervals) == 0 {
		return 0, false
	}
	if t < intervals[0].Start {
		return intervals[0].SlideIndex, true
	}
	last := intervals[len(intervals)-1]
	if t >= last.End {
		return last.SlideIndex, true
	}
	i := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].End > t
	})
	return intervals[i].SlideIndex, true
}

// Assign fills each segment's slide index from its start time and returns
// the per-slide segment distribution. Segments are updated in place; with an
// empty interval list no segment is touched and the distribution is empty.
func Assign(segments []lecture.Segment, intervals []lecture.SlideInterval) map[int]int {
	distribution := make(map[int]int)
	if len(intervals) == 0 {
		return distribution
	}
	for i := range segments {
		slide, ok := SlideAt(intervals, segments[i].Start)
		if !ok {
			continue
		}
		idx := slide
		segments[i].SlideIndex = &idx
		distribution[slide]++
	}
	return distribution
}
