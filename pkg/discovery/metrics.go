package discovery

import (
	"maps"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxSnapshots     = 100
	snapshotInterval = 5 * time.Second

	// Scoring weights for RecommendedMethod and priority learning.
	successWeight = 0.7
	speedWeight   = 0.3
	speedCeiling  = 10 * time.Second
)

// AttemptOutcome describes how a single method attempt ended.
type AttemptOutcome struct {
	Success      bool
	Duration     time.Duration
	DevicesFound int
	Err          error
}

// MethodMetrics aggregates the completed attempts of one method.
type MethodMetrics struct {
	Method        string        `json:"method"`
	AttemptCount  int           `json:"attempt_count"`
	SuccessCount  int           `json:"success_count"`
	FailureCount  int           `json:"failure_count"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	MinDuration   time.Duration `json:"min_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
	SuccessRate   float64       `json:"success_rate"`
	DevicesFound  int           `json:"devices_found"`
	LastError     string        `json:"last_error,omitempty"`
	LastAttempt   time.Time     `json:"last_attempt"`
}

// Score blends success rate and speed into [0,1].
func (m MethodMetrics) Score() float64 {
	speed := 1 - float64(m.AvgDuration)/float64(speedCeiling)
	if speed < 0 {
		speed = 0
	}
	return m.SuccessRate*successWeight + speed*speedWeight
}

// CacheMetrics tracks cache effectiveness.
type CacheMetrics struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	HitRate     float64 `json:"hit_rate"`
	CurrentSize int     `json:"current_size"`
	MaxSize     int     `json:"max_size"`
}

// Metrics is a point-in-time copy of everything the collector knows.
type Metrics struct {
	TotalDiscoveries  int                      `json:"total_discoveries"`
	TotalDevicesFound int                      `json:"total_devices_found"`
	Methods           map[string]MethodMetrics `json:"methods"`
	Cache             CacheMetrics             `json:"cache"`
}

// Snapshot is a timestamped Metrics copy.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

type attempt struct {
	method    string
	startedAt time.Time
}

// MetricsCollector records discovery attempts and cache statistics.
type MetricsCollector struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger zerolog.Logger

	active       map[string]attempt
	methods      map[string]*MethodMetrics
	cache        CacheMetrics
	discoveries  int
	devicesFound int

	snapshots    []Snapshot
	lastSnapshot time.Time
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector(opts ...Option) *MetricsCollector {
	o := buildOptions("metrics", opts)
	return &MetricsCollector{
		clock:        o.clock,
		logger:       *o.logger,
		active:       make(map[string]attempt),
		methods:      make(map[string]*MethodMetrics),
		lastSnapshot: o.clock.Now(),
	}
}

// StartAttempt registers an in-progress attempt and returns its id.
func (c *MetricsCollector) StartAttempt(method string) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[id] = attempt{method: method, startedAt: c.clock.Now()}
	return id
}

// CompleteAttempt folds a finished attempt into its method's metrics.
// Unknown ids are logged and ignored.
func (c *MetricsCollector) CompleteAttempt(id string, out AttemptOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.active[id]
	if !ok {
		c.logger.Warn().Str("attempt_id", id).Msg("Completion for unknown attempt")
		return
	}
	delete(c.active, id)

	now := c.clock.Now()
	dur := out.Duration
	if dur <= 0 {
		dur = now.Sub(a.startedAt)
	}

	m, ok := c.methods[a.method]
	if !ok {
		m = &MethodMetrics{Method: a.method}
		c.methods[a.method] = m
	}

	m.AttemptCount++
	if out.Success {
		m.SuccessCount++
	} else {
		m.FailureCount++
		if out.Err != nil {
			m.LastError = out.Err.Error()
		}
	}
	m.TotalDuration += dur
	m.AvgDuration = m.TotalDuration / time.Duration(m.AttemptCount)
	if m.AttemptCount == 1 || dur < m.MinDuration {
		m.MinDuration = dur
	}
	if dur > m.MaxDuration {
		m.MaxDuration = dur
	}
	m.SuccessRate = float64(m.SuccessCount) / float64(m.AttemptCount)
	m.DevicesFound += out.DevicesFound
	m.LastAttempt = now

	c.discoveries++
	c.devicesFound += out.DevicesFound

	if now.Sub(c.lastSnapshot) >= snapshotInterval {
		c.captureLocked(now)
	}
}

func (c *MetricsCollector) captureLocked(now time.Time) {
	c.snapshots = append(c.snapshots, Snapshot{Timestamp: now, Metrics: c.metricsLocked()})
	if len(c.snapshots) > maxSnapshots {
		c.snapshots = c.snapshots[len(c.snapshots)-maxSnapshots:]
	}
	c.lastSnapshot = now
}

// RecordCacheHit counts a sighting that matched a cached device.
func (c *MetricsCollector) RecordCacheHit() {
	c.mu.Lock()
	c.cache.Hits++
	c.updateHitRateLocked()
	c.mu.Unlock()
}

// RecordCacheMiss counts a sighting of a device not yet cached.
func (c *MetricsCollector) RecordCacheMiss() {
	c.mu.Lock()
	c.cache.Misses++
	c.updateHitRateLocked()
	c.mu.Unlock()
}

// RecordCacheEviction counts a device removed from the cache.
func (c *MetricsCollector) RecordCacheEviction() {
	c.mu.Lock()
	c.cache.Evictions++
	c.mu.Unlock()
}

// UpdateCacheMetrics sets the cache size gauges.
func (c *MetricsCollector) UpdateCacheMetrics(size, maxSize int) {
	c.mu.Lock()
	c.cache.CurrentSize = size
	c.cache.MaxSize = maxSize
	c.mu.Unlock()
}

func (c *MetricsCollector) updateHitRateLocked() {
	total := c.cache.Hits + c.cache.Misses
	if total == 0 {
		c.cache.HitRate = 0
		return
	}
	c.cache.HitRate = float64(c.cache.Hits) / float64(total)
}

// MethodMetrics returns the metrics for one method.
func (c *MetricsCollector) MethodMetrics(method string) (MethodMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.methods[method]
	if !ok {
		return MethodMetrics{}, false
	}
	return *m, true
}

// Metrics returns a copy of the current metrics.
func (c *MetricsCollector) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metricsLocked()
}

func (c *MetricsCollector) metricsLocked() Metrics {
	methods := make(map[string]MethodMetrics, len(c.methods))
	for name, m := range c.methods {
		methods[name] = *m
	}
	return Metrics{
		TotalDiscoveries:  c.discoveries,
		TotalDevicesFound: c.devicesFound,
		Methods:           methods,
		Cache:             c.cache,
	}
}

// Snapshots returns the retained snapshots, oldest first.
func (c *MetricsCollector) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, len(c.snapshots))
	for i, s := range c.snapshots {
		s.Metrics.Methods = maps.Clone(s.Metrics.Methods)
		out[i] = s
	}
	return out
}

// RecommendedMethod returns the method with the best score among those with
// at least one completed attempt.
func (c *MetricsCollector) RecommendedMethod() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	best := ""
	bestScore := -1.0
	for name, m := range c.methods {
		if m.AttemptCount == 0 {
			continue
		}
		score := m.Score()
		if score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}
	return best, best != ""
}

// Reset clears all recorded data.
func (c *MetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[string]attempt)
	c.methods = make(map[string]*MethodMetrics)
	c.cache = CacheMetrics{}
	c.discoveries = 0
	c.devicesFound = 0
	c.snapshots = nil
	c.lastSnapshot = c.clock.Now()
}
