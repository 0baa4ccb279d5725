package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// BatchInput is one named image in a batch request.
type BatchInput struct {
	Name string
	Data []byte
}

// BatchItemResult pairs one input with its outcome. Index matches the
// position of the input in the submitted batch.
type BatchItemResult struct {
	Index  int
	Name   string
	Result *ProcessingResult
	Err    error
}

// ProcessBatch runs the pipeline over the inputs using a bounded worker
// pool. Jobs are tagged with their input index and results land in the slot
// matching that index, so the returned slice is always in submission order
// regardless of completion order. One image's failure never affects its
// siblings.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []BatchInput, req Request, workers int) []BatchItemResult {
	results := make([]BatchItemResult, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := p.Process(ctx, inputs[idx].Data, req)
				results[idx] = BatchItemResult{
					Index:  idx,
					Name:   inputs[idx].Name,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Debug("batch processed", "images", len(inputs), "workers", workers, "failed", failed)
	return results
}
