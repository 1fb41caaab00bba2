package match

import (
	"context"
	"sort"
	"sync"
)

// Series is the result of scoring a full frame sequence.
type Series struct {
	Votes     []Vote
	Abstained int
}

// VoteSeries scores every frame across a bounded worker pool, then applies
// the assignment policy sequentially in timestamp order so the previous-vote
// tie-break sees frames in their real order. The returned votes are sorted
// by timestamp regardless of worker completion order.
func (m *Matcher) VoteSeries(ctx context.Context, frames []Frame, workers int) (Series, error) {
	if workers < 1 {
		workers = 1
	}

	type scored struct {
		index  int
		scores []int
	}

	jobs := make(chan int, len(frames))
	for i := range frames {
		jobs <- i
	}
	close(jobs)

	results := make(chan scored, len(frames))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- scored{index: i, scores: m.scoreSlides(frames[i].Signature)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	scoresByFrame := make([][]int, len(frames))
	for res := range results {
		scoresByFrame[res.index] = res.scores
	}
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}

	order := make([]int, len(frames))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return frames[order[a]].Timestamp < frames[order[b]].Timestamp
	})

	series := Series{Votes: make([]Vote, 0, len(frames))}
	previous := NoSlide
	for _, i := range order {
		vote := m.assign(frames[i].Timestamp, scoresByFrame[i], previous)
		if vote.Abstained() {
			series.Abstained++
		} else {
			previous = vote.SlideIndex
		}
		series.Votes = append(series.Votes, vote)
	}
	return series, nil
}
