package check

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/phobologic/dupcheck/internal/discover"
)

// parseFunc turns one file's content into T.
type parseFunc[T any] func(ctx context.Context, f discover.FileEntry, source []byte) (T, error)

// parser is a parseFunc with its release hook. A parser is used by a single
// goroutine only.
type parser[T any] struct {
	parse parseFunc[T]
	close func()
}

type outcome[T any] struct {
	file  discover.FileEntry
	value T
	err   error
}

// parseConcurrent parses files with a bounded pool of workers, each owning
// the parser returned by newParser. Outcomes come back in the order of
// files, so the result matches a sequential run.
func parseConcurrent[T any](ctx context.Context, files []discover.FileEntry, newParser func() (parser[T], error)) ([]outcome[T], error) {
	if len(files) == 0 {
		return nil, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	parsers := make([]parser[T], 0, numWorkers)
	defer func() {
		for _, p := range parsers {
			if p.close != nil {
				p.close()
			}
		}
	}()
	for range numWorkers {
		p, err := newParser()
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}

	type result struct {
		index int
		out   outcome[T]
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for _, p := range parsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue // drain
				}
				f := files[idx]
				source, err := os.ReadFile(f.Abs)
				if err != nil {
					results <- result{index: idx, out: outcome[T]{file: f, err: err}}
					continue
				}
				value, err := p.parse(ctx, f, source)
				results <- result{index: idx, out: outcome[T]{file: f, value: value, err: err}}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]outcome[T], len(files))
	for r := range results {
		indexed[r.index] = r.out
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return indexed, nil
}
