package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Root       string
	Classes    int
	ImageSize  int
	Threshold  float64
	NumWorkers int
}

// Load discovers every image beneath opts.Root, decodes them on a worker
// pool and assembles the dataset in discovery order. Files without a valid
// label or that fail to decode are skipped with a log line.
func Load(ctx context.Context, opts LoadOptions) (*Dataset, error) {
	if opts.Classes <= 0 || opts.ImageSize <= 0 {
		return nil, fmt.Errorf("dataset: classes=%d image_size=%d", opts.Classes, opts.ImageSize)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	paths, err := DiscoverImages(opts.Root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images under %s", ErrEmpty, opts.Root)
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan decodeJob, opts.NumWorkers)
	results := make(chan decoded, opts.NumWorkers*2)

	go produceJobs(ctx, jobs, paths)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, opts)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	features, labels, kept := aggregate(ctx, results)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no labelled images under %s", ErrEmpty, opts.Root)
	}

	ds, err := FromExamples(features, labels, opts.Classes)
	if err != nil {
		return nil, err
	}
	ds.Paths = kept
	log.Printf("dataset root=%s examples=%d skipped=%d elapsed=%s",
		opts.Root, len(kept), len(paths)-len(kept), time.Since(start).Round(time.Millisecond))
	return ds, nil
}

type decodeJob struct {
	id   int
	path string
}

type decoded struct {
	id       int
	path     string
	features []float64
	label    int
	err      error
}

func produceJobs(ctx context.Context, jobs chan<- decodeJob, paths []string) {
	defer close(jobs)
	for id, path := range paths {
		select {
		case <-ctx.Done():
			return
		case jobs <- decodeJob{id: id, path: path}:
		}
	}
}

func worker(ctx context.Context, jobs <-chan decodeJob, results chan<- decoded, opts LoadOptions) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res := decoded{id: job.id, path: job.path}
			res.label, res.err = ParseLabel(job.path, opts.Classes)
			if res.err == nil {
				res.features, res.err = DecodeFile(job.path, opts.ImageSize, opts.Threshold)
			}
			select {
			case <-ctx.Done():
				return
			case results <- res:
			}
		}
	}
}

// aggregate reorders worker results by job id so the dataset columns follow
// discovery order regardless of which worker finished first.
func aggregate(ctx context.Context, results <-chan decoded) ([][]float64, []int, []string) {
	pending := make(map[int]decoded)
	var (
		features [][]float64
		labels   []int
		paths    []string
		nextID   int
	)
	for {
		res, ok := pending[nextID]
		if !ok {
			select {
			case <-ctx.Done():
				return features, labels, paths
			case res, ok = <-results:
				if !ok {
					return features, labels, paths
				}
				pending[res.id] = res
			}
			continue
		}
		delete(pending, nextID)
		nextID++
		if res.err != nil {
			if errors.Is(res.err, ErrNoLabel) {
				log.Printf("dataset skip file=%s reason=no-label", res.path)
			} else {
				log.Printf("dataset skip file=%s err=%v", res.path, res.err)
			}
			continue
		}
		features = append(features, res.features)
		labels = append(labels, res.label)
		paths = append(paths, res.path)
	}
}
