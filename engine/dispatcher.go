package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Dispatcher races several engines with staged start: engines[0] starts
// immediately, engines[i] after delays[i] unless an earlier one has
// already succeeded. It implements Engine, so the pipeline doesn't need
// to know whether it talks to one engine or several.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
}

// NewDispatcher creates a Dispatcher. Missing delays default to zero.
func NewDispatcher(engines []Engine, delays []time.Duration) *Dispatcher {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &Dispatcher{engines: engines, delays: d}
}

func (d *Dispatcher) Name() string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return "auto(" + strings.Join(names, ",") + ")"
}

// Fetch returns the first successful result. When every engine fails, an
// upstream *StatusError is preferred over transport errors so a missing
// page still classifies as such; a finished context wins over both.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}

			select {
			case <-raceCtx.Done():
				return
			default:
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, d.delays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr, statusErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			var se *StatusError
			if statusErr == nil && errors.As(rr.err, &se) {
				statusErr = rr.err
			}
			continue
		}
		raceCancel()
		slog.Debug("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		return rr.result, nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, fmt.Errorf("dispatcher: %w", ctx.Err())
	case statusErr != nil:
		return nil, statusErr
	case lastErr != nil:
		return nil, lastErr
	}
	return nil, fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
}
