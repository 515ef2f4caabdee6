package discovery

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long Discover waits for further callers before
// starting an operation.
const DefaultDebounce = 300 * time.Millisecond

const (
	inProgressMessage = "discovery already in progress"
	cancelledMessage  = "discovery cancelled"
)

// ServiceConfig configures the cache and debounce window.
type ServiceConfig struct {
	Debounce     time.Duration `json:"debounce" yaml:"debounce"`
	CacheTTL     time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	MaxCacheSize int           `json:"max_cache_size" yaml:"max_cache_size"`
}

// DefaultServiceConfig returns the default debounce and cache bounds.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Debounce:     DefaultDebounce,
		CacheTTL:     DefaultCacheTTL,
		MaxCacheSize: DefaultMaxCacheSize,
	}
}

// Service coalesces discovery requests into single operations over a
// MethodQueue and keeps the discovered devices in an identity-keyed cache.
type Service struct {
	queue        *MethodQueue
	invalidation *InvalidationManager
	metrics      *MetricsCollector
	clock        clock.Clock
	logger       zerolog.Logger
	events       broadcaster

	mu           sync.Mutex
	debounce     time.Duration
	cacheTTL     time.Duration
	maxCacheSize int
	cache        map[string]NormalizedDevice

	// pending callers wait for the next operation; running callers wait for
	// the one in flight.
	pending     []chan Result
	pendingOpts ExecuteOptions
	timer       *clock.Timer
	timerSeq    uint64

	inFlight   bool
	running    []chan Result
	generation uint64
	cancelRun  context.CancelFunc
	lastResult *Result
}

// NewService wires the three collaborators into a discovery service.
func NewService(queue *MethodQueue, invalidation *InvalidationManager, metrics *MetricsCollector, cfg ServiceConfig, opts ...Option) *Service {
	o := buildOptions("discovery", opts)
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.MaxCacheSize == 0 {
		cfg.MaxCacheSize = DefaultMaxCacheSize
	}

	s := &Service{
		queue:        queue,
		invalidation: invalidation,
		metrics:      metrics,
		clock:        o.clock,
		logger:       *o.logger,
		debounce:     cfg.Debounce,
		cacheTTL:     max(cfg.CacheTTL, MinCacheTTL),
		maxCacheSize: max(cfg.MaxCacheSize, 1),
		cache:        make(map[string]NormalizedDevice),
	}
	metrics.UpdateCacheMetrics(0, s.maxCacheSize)
	return s
}

// Discover joins the next discovery operation and returns its result. Calls
// arriving within the debounce window share one operation. While an
// operation is in flight, the previous result is returned immediately.
// Discover never fails; problems are reported in the Result.
func (s *Service) Discover(ctx context.Context, opts ExecuteOptions) Result {
	s.mu.Lock()
	if s.inFlight {
		last := s.lastResult
		s.mu.Unlock()
		if last != nil {
			return cloneResult(*last)
		}
		return Result{Devices: []NormalizedDevice{}, Errors: []string{inProgressMessage}, HasErrors: true}
	}

	ch := make(chan Result, 1)
	s.pending = append(s.pending, ch)
	s.pendingOpts = opts
	s.armTimerLocked()
	s.mu.Unlock()

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return Result{
			Devices:   []NormalizedDevice{},
			Errors:    []string{ctx.Err().Error()},
			HasErrors: true,
			Cancelled: true,
		}
	}
}

func (s *Service) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.run(seq) })
}

// run performs one discovery operation for every caller pending when the
// debounce timer fired.
func (s *Service) run(seq uint64) {
	s.mu.Lock()
	if seq != s.timerSeq || s.timer == nil || s.inFlight {
		s.mu.Unlock()
		return
	}
	waiters := s.pending
	opts := s.pendingOpts
	s.pending = nil
	s.pendingOpts = ExecuteOptions{}
	s.timer = nil

	s.inFlight = true
	s.running = waiters
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel

	evicted := s.evictExpiredLocked()
	s.metrics.UpdateCacheMetrics(len(s.cache), s.maxCacheSize)
	s.mu.Unlock()

	s.events.publish(evicted...)
	s.logger.Debug().Int("callers", len(waiters)).Msg("Starting discovery")

	res := s.execute(ctx, opts)
	cancel()

	s.mu.Lock()
	if gen != s.generation || !s.inFlight {
		s.mu.Unlock()
		s.logger.Debug().Msg("Discarding result of cancelled discovery")
		return
	}
	merged, events := s.mergeLocked(res.Devices)
	events = append(events, s.enforceSizeLocked()...)
	s.metrics.UpdateCacheMetrics(len(s.cache), s.maxCacheSize)

	res.Devices = merged
	s.lastResult = &res
	waiters = s.running
	s.running = nil
	s.inFlight = false
	s.cancelRun = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- cloneResult(res)
	}

	final := cloneResult(res)
	events = append(events, Event{Type: EventDiscoveryCompleted, Result: &final, Timestamp: s.clock.Now()})
	s.events.publish(events...)

	s.logger.Info().
		Str("method", res.Method).
		Int("devices", len(res.Devices)).
		Int("callers", len(waiters)).
		Dur("duration", res.Duration).
		Bool("has_errors", res.HasErrors).
		Msg("Discovery completed")
}

func (s *Service) execute(ctx context.Context, opts ExecuteOptions) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().Interface("panic", p).Msg("Discovery operation panicked")
			res = Result{
				Devices:   []NormalizedDevice{},
				Errors:    []string{fmt.Sprintf("discovery failed: %v", p)},
				HasErrors: true,
			}
		}
	}()
	return s.queue.Execute(ctx, opts)
}

// Cancel resolves every waiting caller with a cancelled result, disarms the
// debounce timer and aborts the operation in flight. A cancelled operation
// never updates the cache.
func (s *Service) Cancel() {
	s.mu.Lock()
	waiters := append(s.pending, s.running...)
	s.pending = nil
	s.pendingOpts = ExecuteOptions{}
	s.running = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++

	wasRunning := s.inFlight
	if s.inFlight {
		s.generation++
		s.inFlight = false
		if s.cancelRun != nil {
			s.cancelRun()
			s.cancelRun = nil
		}
	}
	s.mu.Unlock()

	res := Result{
		Devices:   []NormalizedDevice{},
		Errors:    []string{cancelledMessage},
		HasErrors: true,
		Cancelled: true,
	}
	for _, ch := range waiters {
		ch <- cloneResult(res)
	}

	if wasRunning || len(waiters) > 0 {
		s.events.publish(Event{Type: EventDiscoveryCancelled, Timestamp: s.clock.Now()})
		s.logger.Info().Int("callers", len(waiters)).Bool("in_flight", wasRunning).Msg("Discovery cancelled")
	}
}

// InFlight reports whether a discovery operation is running.
func (s *Service) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// LastResult returns the most recent completed result.
func (s *Service) LastResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return Result{}, false
	}
	return cloneResult(*s.lastResult), true
}

func cloneResult(r Result) Result {
	r.Devices = slices.Clone(r.Devices)
	if r.Devices == nil {
		r.Devices = []NormalizedDevice{}
	}
	r.Errors = slices.Clone(r.Errors)
	return r
}

// MethodStats returns per-method configuration and metrics.
func (s *Service) MethodStats() map[string]MethodStats {
	return s.queue.MethodStats()
}

// QueueConfig returns the method queue configuration.
func (s *Service) QueueConfig() QueueConfig {
	return s.queue.Config()
}

// SetQueueConfig applies a partial queue configuration update.
func (s *Service) SetQueueConfig(u QueueConfigUpdate) {
	s.queue.SetConfig(u)
}

// ResetMethodPriorities restores built-in method priorities.
func (s *Service) ResetMethodPriorities() {
	s.queue.ResetPriorities()
}

// Metrics returns the collected discovery metrics.
func (s *Service) Metrics() Metrics {
	return s.metrics.Metrics()
}

// MetricsSnapshots returns the retained metrics snapshots.
func (s *Service) MetricsSnapshots() []Snapshot {
	return s.metrics.Snapshots()
}

// RecommendedMethod returns the best-scoring method so far.
func (s *Service) RecommendedMethod() (string, bool) {
	return s.metrics.RecommendedMethod()
}

// DeviceHistory returns the recorded snapshots of a device.
func (s *Service) DeviceHistory(id string) []DeviceStateSnapshot {
	return s.invalidation.DeviceHistory(id)
}

// DeviceConfidence returns the identity confidence of a device.
func (s *Service) DeviceConfidence(id string) float64 {
	return s.invalidation.Confidence(id)
}

// DeviceTTL returns the adaptive cache lifetime of a device.
func (s *Service) DeviceTTL(id string) time.Duration {
	return s.invalidation.AdaptiveTTL(id)
}

// InvalidationHistory returns up to limit recent invalidations.
func (s *Service) InvalidationHistory(limit int) []InvalidationEvent {
	return s.invalidation.InvalidationHistory(limit)
}

// InvalidationStats summarizes invalidation state.
func (s *Service) InvalidationStats() InvalidationStats {
	return s.invalidation.Stats()
}
