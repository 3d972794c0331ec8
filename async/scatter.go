package async

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ScatterResult is one worker's contribution to a Scatter call: the offset
// into the original input it was responsible for, and whatever value its
// handler returned for that slice.
type ScatterResult struct {
	Offset int
	Extent interface{}
}

// Scatter splits n units of work into contiguous chunks, one per available
// CPU, and runs f concurrently over each chunk. f is given the shared
// *sync.RWMutex so handlers that must touch common state (as opposed to
// only their own chunk) can do so safely. If any worker returns an error,
// Scatter returns the first one observed; callers that need partial results
// on error should accumulate into state captured by the closure instead of
// relying on the returned slice.
func Scatter(n int, f func(offset int, entries int, mu *sync.RWMutex) (interface{}, error)) ([]*ScatterResult, error) {
	if n <= 0 {
		return nil, errors.New("input length must be greater than 0")
	}

	nWorkers := runtime.GOMAXPROCS(0)
	if nWorkers > n {
		nWorkers = n
	}
	chunkSize := (n + nWorkers - 1) / nWorkers

	var mu sync.RWMutex
	var wg sync.WaitGroup
	results := make([]*ScatterResult, nWorkers)
	errs := make([]error, nWorkers)

	for w := 0; w < nWorkers; w++ {
		offset := w * chunkSize
		if offset >= n {
			break
		}
		entries := chunkSize
		if offset+entries > n {
			entries = n - offset
		}
		wg.Add(1)
		go func(idx, offset, entries int) {
			defer wg.Done()
			extent, err := f(offset, entries, &mu)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = &ScatterResult{Offset: offset, Extent: extent}
		}(w, offset, entries)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([]*ScatterResult, 0, nWorkers)
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
