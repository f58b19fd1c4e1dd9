package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	"golang.org/x/time/rate"
)

// BulkResendOpts contains configuration for resending several email types at once.
type BulkResendOpts struct {
	NumWorkers int     // Concurrent workers (default: 3)
	RateLimit  float64 // Requests per second (default: 2)
}

// ResendResult is the outcome for one email type.
type ResendResult struct {
	ID        string
	Frequency models.Frequency
	Error     error
}

// BulkResendResult summarises a [PreferenceEngine.ResendAll] run.
type BulkResendResult struct {
	Results     []ResendResult
	Succeeded   int
	Failed      int
	RateLimited int
}

type resendJob struct {
	item      models.EmailType
	frequency models.Frequency
}

// ResendAll resends the latest issue of every subscribed type in ids.
//
// An empty ids list selects every subscribed type whose metadata allows resending.
// Rate limited responses are reported per item and never retried.
func (e *PreferenceEngine) ResendAll(ctx context.Context, ids []string, opts BulkResendOpts) (*BulkResendResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	jobs, err := e.resendJobs(ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResendResult{Results: make([]ResendResult, 0, len(jobs))}
	if len(jobs) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	queue := make(chan resendJob, len(jobs))
	results := make(chan ResendResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				res := ResendResult{ID: job.item.ID, Frequency: job.frequency}
				if err := limiter.Wait(ctx); err != nil {
					res.Error = err
				} else {
					res.Error = e.api.ResendLatest(ctx, job.item.Domain, job.item.ID, job.frequency)
				}
				results <- res
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Error == nil:
			result.Succeeded++
		case errors.Is(res.Error, shared.ErrRateLimited):
			result.RateLimited++
			result.Failed++
		default:
			result.Failed++
		}
		e.sendProgress(resendUpdate(completed, len(jobs), res.ID, res.Error))
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].ID < result.Results[j].ID })
	return result, ctx.Err()
}

func (e *PreferenceEngine) resendJobs(ids []string) ([]resendJob, error) {
	catalog := e.Catalog()
	snapshot := e.store.Get()

	var jobs []resendJob
	if len(ids) == 0 {
		for _, item := range catalog {
			if f, _ := snapshot.Get(item.ID); item.CanResend() && f != models.FrequencyNone {
				jobs = append(jobs, resendJob{item: item, frequency: f})
			}
		}
		return jobs, nil
	}

	for _, id := range ids {
		item, ok := catalog.Find(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrUnknownEmailType, id)
		}
		f, _ := snapshot.Get(id)
		if f == models.FrequencyNone {
			return nil, fmt.Errorf("%w: not subscribed to %s", shared.ErrInvalidInput, item.Name)
		}
		jobs = append(jobs, resendJob{item: item, frequency: f})
	}
	return jobs, nil
}
