package discovery

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const (
	// DefaultRetryDelay is the pause between attempts of a failing method.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultMethodTimeout applies when neither the call nor the method sets one.
	DefaultMethodTimeout = 5 * time.Second

	// HighPriorityThreshold splits methods for the hybrid strategy.
	HighPriorityThreshold = 7

	minPriority            = 1
	maxPriority            = 10
	minAttemptsForLearning = 10

	// NoMethodsMessage is reported when no enabled method can run.
	NoMethodsMessage = "No enabled discovery methods available"
)

// QueueConfig is the method queue's configuration.
type QueueConfig struct {
	Strategy        Strategy      `json:"strategy" yaml:"strategy"`
	DefaultTimeout  time.Duration `json:"default_timeout" yaml:"default_timeout"`
	LearningEnabled bool          `json:"learning_enabled" yaml:"learning_enabled"`
	Methods         []Method      `json:"methods" yaml:"methods"`
}

// DefaultQueueConfig returns the hybrid strategy over the built-in methods.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Strategy:        StrategyHybrid,
		DefaultTimeout:  DefaultMethodTimeout,
		LearningEnabled: true,
		Methods:         DefaultMethods(),
	}
}

// QueueConfigUpdate is a partial update. Nil fields are left unchanged; a
// non-nil Methods replaces the whole table.
type QueueConfigUpdate struct {
	Strategy        *Strategy
	DefaultTimeout  *time.Duration
	LearningEnabled *bool
	Methods         []Method
}

// ExecuteOptions overrides queue behavior for one execution.
type ExecuteOptions struct {
	Strategy *Strategy
	// Timeout overrides every method's timeout when positive.
	Timeout time.Duration
	// PreferredMethods restricts execution to the named methods.
	PreferredMethods []string
}

// MethodStats is the per-method view returned by MethodStats.
type MethodStats struct {
	Priority     int           `json:"priority"`
	Enabled      bool          `json:"enabled"`
	Timeout      time.Duration `json:"timeout"`
	Retries      int           `json:"retries"`
	SuccessRate  float64       `json:"success_rate"`
	AvgDuration  time.Duration `json:"avg_duration"`
	AttemptCount int           `json:"attempt_count"`
}

// MethodQueue runs discovery methods in priority order under a strategy and
// learns priorities from their outcomes.
type MethodQueue struct {
	mu     sync.Mutex
	config QueueConfig

	executor   Executor
	metrics    *MetricsCollector
	clock      clock.Clock
	logger     zerolog.Logger
	retryDelay time.Duration
}

// NewMethodQueue creates a queue over executor. Attempts are recorded in metrics.
func NewMethodQueue(executor Executor, metrics *MetricsCollector, cfg QueueConfig, opts ...Option) *MethodQueue {
	o := buildOptions("queue", opts)
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultMethodTimeout
	}
	cfg.Methods = clampMethods(cfg.Methods)
	return &MethodQueue{
		config:     cfg,
		executor:   executor,
		metrics:    metrics,
		clock:      o.clock,
		logger:     *o.logger,
		retryDelay: o.retryDelay,
	}
}

// Config returns a copy of the current configuration.
func (q *MethodQueue) Config() QueueConfig {
	q.mu.Lock()
	defer q.mu.Unlock()
	cfg := q.config
	cfg.Methods = slices.Clone(q.config.Methods)
	return cfg
}

// SetConfig applies a partial update.
func (q *MethodQueue) SetConfig(u QueueConfigUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if u.Strategy != nil {
		q.config.Strategy = *u.Strategy
	}
	if u.DefaultTimeout != nil && *u.DefaultTimeout > 0 {
		q.config.DefaultTimeout = *u.DefaultTimeout
	}
	if u.LearningEnabled != nil {
		q.config.LearningEnabled = *u.LearningEnabled
	}
	if u.Methods != nil {
		q.config.Methods = clampMethods(u.Methods)
	}
	q.logger.Info().
		Str("strategy", q.config.Strategy.String()).
		Int("methods", len(q.config.Methods)).
		Bool("learning", q.config.LearningEnabled).
		Msg("Queue configuration updated")
}

func clampMethods(methods []Method) []Method {
	out := slices.Clone(methods)
	for i := range out {
		out[i].Priority = clampPriority(out[i].Priority)
		if out[i].Retries < 0 {
			out[i].Retries = 0
		}
	}
	return out
}

func clampPriority(p int) int {
	return min(max(p, minPriority), maxPriority)
}

// MethodStats merges configuration and recorded metrics per method.
func (q *MethodQueue) MethodStats() map[string]MethodStats {
	cfg := q.Config()
	stats := make(map[string]MethodStats, len(cfg.Methods))
	for _, m := range cfg.Methods {
		s := MethodStats{
			Priority: m.Priority,
			Enabled:  m.Enabled,
			Timeout:  m.Timeout,
			Retries:  m.Retries,
		}
		if mm, ok := q.metrics.MethodMetrics(m.Name); ok {
			s.SuccessRate = mm.SuccessRate
			s.AvgDuration = mm.AvgDuration
			s.AttemptCount = mm.AttemptCount
		}
		stats[m.Name] = s
	}
	return stats
}

// ResetPriorities restores the built-in priority of every known method.
func (q *MethodQueue) ResetPriorities() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.config.Methods {
		if p, ok := defaultPriority(q.config.Methods[i].Name); ok {
			q.config.Methods[i].Priority = p
		}
	}
	q.logger.Info().Msg("Method priorities reset to defaults")
}

// AdjustPriorities moves every method with enough attempts one step toward
// the priority bucket its score earns.
func (q *MethodQueue) AdjustPriorities() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.config.Methods {
		m := &q.config.Methods[i]
		mm, ok := q.metrics.MethodMetrics(m.Name)
		if !ok || mm.AttemptCount < minAttemptsForLearning {
			continue
		}

		lo, hi := priorityBucket(mm.Score())
		next := m.Priority
		switch {
		case m.Priority < lo:
			next++
		case m.Priority > hi:
			next--
		}
		next = clampPriority(next)
		if next != m.Priority {
			q.logger.Debug().
				Str("method", m.Name).
				Int("from", m.Priority).
				Int("to", next).
				Float64("score", mm.Score()).
				Msg("Adjusted method priority")
			m.Priority = next
		}
	}
}

func priorityBucket(score float64) (lo, hi int) {
	switch {
	case score >= 0.9:
		return 9, 10
	case score >= 0.7:
		return 7, 8
	case score >= 0.5:
		return 5, 6
	}
	return 1, 4
}

// enabledMethods returns the enabled methods, optionally restricted to
// preferred, sorted by priority descending then name.
func (q *MethodQueue) enabledMethods(preferred []string) []Method {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Method
	for _, m := range q.config.Methods {
		if !m.Enabled {
			continue
		}
		if len(preferred) > 0 && !slices.Contains(preferred, m.Name) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b Method) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Execute runs the enabled methods under the configured or requested strategy.
func (q *MethodQueue) Execute(ctx context.Context, opts ExecuteOptions) Result {
	cfg := q.Config()
	strategy := cfg.Strategy
	if opts.Strategy != nil {
		strategy = *opts.Strategy
	}

	methods := q.enabledMethods(opts.PreferredMethods)
	if len(methods) == 0 {
		return Result{
			Method:    "none",
			Errors:    []string{NoMethodsMessage},
			HasErrors: true,
		}
	}

	r := runner{queue: q, timeout: opts.Timeout, defaultTimeout: cfg.DefaultTimeout}

	start := q.clock.Now()
	var res Result
	switch strategy {
	case StrategyRace:
		res = r.race(ctx, methods)
	case StrategyHybrid:
		res = r.hybrid(ctx, methods)
	default:
		res = r.sequential(ctx, methods)
	}
	res.Duration = q.clock.Since(start)

	q.logger.Debug().
		Str("strategy", strategy.String()).
		Str("method", res.Method).
		Int("devices", len(res.Devices)).
		Bool("has_errors", res.HasErrors).
		Msg("Queue execution finished")

	if !res.HasErrors && len(res.Devices) > 0 && cfg.LearningEnabled {
		q.AdjustPriorities()
	}
	return res
}
