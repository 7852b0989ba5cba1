// Package worker provides the bounded fan-out used by the research and
// generate stages: a fixed number of goroutines drain an input list, a shared
// rate limiter paces outbound collaborator calls, and results land in input
// order regardless of completion order.
package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"herald/internal/services"
)

// Options tunes a fan-out run.
type Options struct {
	Workers int

	// MaxRetries is the number of extra attempts per item on transient
	// failures.
	MaxRetries int

	// ItemTimeout bounds one attempt at the processor.
	ItemTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Set to <=0 to
	// disable.
	RateLimitRPS float64

	// BackoffInitial is the initial sleep before retrying a transient
	// failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

// Result holds the outcome for one input item.
type Result[Out any] struct {
	Index  int
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// ProcessAll runs the processor over every item with bounded parallelism.
// The returned slice has one slot per input in input order; per-item errors
// stay in their slot and never abort the run. Only context cancellation ends
// a run early.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback additionally invokes onDone as each item completes,
// in completion order. The callback is serialized; stages use it to publish
// smooth progress.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	onDone func(completed int, res Result[Out]),
	opts Options,
) ([]Result[Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[Out], len(items))

	type job struct {
		idx int
		in  In
	}

	jobs := make(chan job)
	done := make(chan Result[Out], opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				output, err := processWithRetry(ctx, j.in, processor, limiter, opts)
				select {
				case done <- Result[Out]{Index: j.idx, Output: output, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{idx: i, in: item}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for res := range done {
		out[res.Index] = res
		completed++
		if onDone != nil {
			onDone(completed, res)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func processWithRetry[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) (Out, error) {
	var lastOut Out
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastOut, err
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return lastOut, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
		output, err := processor(attemptCtx, item)
		cancel()
		lastOut = output
		if err == nil {
			return output, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return lastOut, ctx.Err()
		}
		if !services.IsTransient(err) || attempt >= opts.MaxRetries {
			return lastOut, err
		}

		sleep := backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt)
		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastOut, ctx.Err()
		}
	}
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	jitter := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * jitter)
}
