package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var errNoDevices = errors.New("no devices found")

// runner executes one queue run. It carries the per-call timeout override.
type runner struct {
	queue          *MethodQueue
	timeout        time.Duration
	defaultTimeout time.Duration
}

// outcome is the result of running a single method.
type outcome struct {
	method  string
	devices []NormalizedDevice
	errs    []string
}

func (o outcome) ok() bool {
	return len(o.errs) == 0 && len(o.devices) > 0
}

func (r runner) timeoutFor(m Method) time.Duration {
	switch {
	case r.timeout > 0:
		return r.timeout
	case m.Timeout > 0:
		return m.Timeout
	}
	return r.defaultTimeout
}

// attempt performs one executor call with its own deadline and records it.
func (r runner) attempt(ctx context.Context, m Method) ([]NormalizedDevice, error) {
	q := r.queue
	timeout := r.timeoutFor(m)
	id := q.metrics.StartAttempt(m.Name)
	start := q.clock.Now()

	raw, err := r.call(ctx, m.Name, timeout)

	now := q.clock.Now()
	var devices []NormalizedDevice
	for _, rd := range raw {
		d, ok := Normalize(rd, m.Name, now)
		if !ok {
			q.logger.Warn().Str("method", m.Name).Str("name", rd.Name).Msg("Skipping device record without identity")
			continue
		}
		devices = append(devices, d)
	}
	if err == nil && len(devices) == 0 {
		err = errNoDevices
	}

	q.metrics.CompleteAttempt(id, AttemptOutcome{
		Success:      err == nil,
		Duration:     now.Sub(start),
		DevicesFound: len(devices),
		Err:          err,
	})
	return devices, err
}

// call invokes the executor under a deadline, converting panics to errors.
func (r runner) call(ctx context.Context, method string, timeout time.Duration) (raw []RawDevice, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("method %s panicked: %v", method, p)
		}
	}()

	raw, err = r.queue.executor(ctx, method, timeout)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return raw, err
}

// runMethod attempts m up to Retries+1 times, pausing between attempts.
func (r runner) runMethod(ctx context.Context, m Method) outcome {
	out := outcome{method: m.Name}
	for i := 0; i <= m.Retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				out.errs = append(out.errs, fmt.Sprintf("%s: %v", m.Name, ctx.Err()))
				return out
			case <-r.queue.clock.After(r.queue.retryDelay):
			}
		}

		devices, err := r.attempt(ctx, m)
		if err == nil {
			return outcome{method: m.Name, devices: devices}
		}
		if errors.Is(err, errNoDevices) {
			continue
		}
		out.errs = append(out.errs, fmt.Sprintf("%s: %v", m.Name, err))
		if ctx.Err() != nil {
			return out
		}
	}
	return out
}

func (r runner) sequential(ctx context.Context, methods []Method) Result {
	var errs []string
	for _, m := range methods {
		out := r.runMethod(ctx, m)
		if out.ok() {
			return Result{Devices: out.devices, Method: out.method}
		}
		errs = append(errs, out.errs...)
		if ctx.Err() != nil {
			break
		}
	}
	return failed(StrategySequential, errs)
}

// race runs every method concurrently and waits for all of them. The
// highest-priority success wins; methods is already priority ordered.
func (r runner) race(ctx context.Context, methods []Method) Result {
	outs := make([]outcome, len(methods))

	var g errgroup.Group
	for i, m := range methods {
		g.Go(func() error {
			devices, err := r.attempt(ctx, m)
			outs[i] = outcome{method: m.Name, devices: devices}
			if err != nil && !errors.Is(err, errNoDevices) {
				outs[i].errs = []string{fmt.Sprintf("%s: %v", m.Name, err)}
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []string
	for _, out := range outs {
		if out.ok() {
			return Result{Devices: out.devices, Method: out.method}
		}
		errs = append(errs, out.errs...)
	}
	return failed(StrategyRace, errs)
}

// hybrid runs high-priority methods sequentially, then races the rest.
func (r runner) hybrid(ctx context.Context, methods []Method) Result {
	var high, low []Method
	for _, m := range methods {
		if m.Priority >= HighPriorityThreshold {
			high = append(high, m)
		} else {
			low = append(low, m)
		}
	}

	var errs []string
	if len(high) > 0 {
		res := r.sequential(ctx, high)
		if !res.HasErrors && len(res.Devices) > 0 {
			return res
		}
		errs = append(errs, res.Errors...)
	}
	if len(low) > 0 && ctx.Err() == nil {
		res := r.race(ctx, low)
		if !res.HasErrors && len(res.Devices) > 0 {
			return res
		}
		errs = append(errs, res.Errors...)
	}
	return failed(StrategyHybrid, errs)
}

// failed builds the result of a run in which no method succeeded. A run in
// which every method returned cleanly with no devices carries no errors.
func failed(s Strategy, errs []string) Result {
	return Result{
		Devices:   []NormalizedDevice{},
		Method:    s.String() + "_failed",
		Errors:    errs,
		HasErrors: len(errs) > 0,
	}
}
