package evaluator

import (
	"context"
	"sync"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/logging"
)

// Run evaluates inputs with up to jobs concurrent workers. Every input gets
// exactly one entry in the returned slice, in input order; a failing image
// yields an entry with FailReason instead of aborting the batch.
func Run(ctx context.Context, ev Evaluator, inputs []Input, jobs int) []domain.Evaluation {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]domain.Evaluation, len(inputs))
	queue := make(chan int)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for i := range queue {
			in := inputs[i]
			result, err := ev.Evaluate(ctx, in)
			if err != nil {
				logging.Warn("evaluator: image failed",
					logging.String("image", in.ImageName), logging.Err(err))
				results[i] = domain.Failed(in.ImageName, err.Error())
				continue
			}
			results[i] = domain.Succeeded(in.ImageName, *result)
		}
	}
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go worker()
	}
	for i := range inputs {
		queue <- i
	}
	close(queue)
	wg.Wait()
	return results
}
