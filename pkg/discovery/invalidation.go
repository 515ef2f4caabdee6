package discovery

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const (
	maxHistoryPerDevice = 20
	maxInvalidationLog  = 100

	// MinAdaptiveTTL and MaxAdaptiveTTL bound the per-device TTL.
	MinAdaptiveTTL = 5 * time.Minute
	MaxAdaptiveTTL = 2 * time.Hour
	// MaxEntryAge is the absolute ceiling on how long a sighting stays valid.
	MaxEntryAge = 2 * time.Hour

	invalidationThreshold = 0.8

	// Confidence weights. count saturates at countSaturation sightings,
	// recency falls linearly from recencyFresh to recencyHorizon.
	countWeight     = 0.4
	recencyWeight   = 0.3
	stabilityWeight = 0.3
	countSaturation = 10
	recencyFresh    = time.Minute
	recencyHorizon  = 48 * time.Hour

	// Confidence at or below ttlLowConfidence gets MinAdaptiveTTL, at or
	// above ttlHighConfidence gets MaxAdaptiveTTL.
	ttlLowConfidence  = 0.5
	ttlHighConfidence = 0.95
)

// ChangeType classifies how a device differs from its recorded history.
type ChangeType string

const (
	ChangeNewDevice ChangeType = "new_device"
	ChangeMAC       ChangeType = "mac_change"
	ChangeIP        ChangeType = "ip_change"
	ChangeStable    ChangeType = "stable"
)

var changeConfidence = map[ChangeType]float64{
	ChangeNewDevice: 0.5,
	ChangeMAC:       0.95,
	ChangeIP:        0.9,
	ChangeStable:    0.99,
}

// InvalidationReason records why a cache entry was dropped.
type InvalidationReason string

const (
	ReasonTTLExpired InvalidationReason = "ttl_expired"
	ReasonChanged    InvalidationReason = "changed"
)

// DeviceStateSnapshot is one recorded observation of a device.
type DeviceStateSnapshot struct {
	Seq             int       `json:"seq"`
	DeviceID        string    `json:"device_id"`
	NetworkAddress  string    `json:"network_address,omitempty"`
	HardwareAddress string    `json:"hardware_address,omitempty"`
	DiscoveryCount  int       `json:"discovery_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// ChangeDetection is the result of comparing a device to its history.
type ChangeDetection struct {
	ChangeType ChangeType           `json:"change_type"`
	Confidence float64              `json:"confidence"`
	OldState   *DeviceStateSnapshot `json:"old_state,omitempty"`
	NewState   DeviceStateSnapshot  `json:"new_state"`
}

// InvalidationEvent is an entry in the invalidation log.
type InvalidationEvent struct {
	// Seq increases by one per event for the life of the manager, across
	// Reset, so consumers can resume after the last event they saw.
	Seq       int64              `json:"seq"`
	DeviceID  string             `json:"device_id"`
	Reason    InvalidationReason `json:"reason"`
	Timestamp time.Time          `json:"timestamp"`
}

// InvalidationStats summarizes the manager's state.
type InvalidationStats struct {
	TrackedDevices    int                        `json:"tracked_devices"`
	TotalSnapshots    int                        `json:"total_snapshots"`
	Invalidations     int                        `json:"invalidations"`
	ByReason          map[InvalidationReason]int `json:"by_reason"`
	AverageConfidence float64                    `json:"average_confidence"`
}

// InvalidationManager keeps a bounded history per device and decides when
// cached entries are stale.
type InvalidationManager struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger zerolog.Logger

	history map[string][]DeviceStateSnapshot
	seq     map[string]int
	log     []InvalidationEvent
	// total counts invalidations since the last Reset; the log only keeps
	// the newest maxInvalidationLog.
	total    int
	eventSeq int64
}

// NewInvalidationManager creates an empty manager.
func NewInvalidationManager(opts ...Option) *InvalidationManager {
	o := buildOptions("invalidation", opts)
	return &InvalidationManager{
		clock:   o.clock,
		logger:  *o.logger,
		history: make(map[string][]DeviceStateSnapshot),
		seq:     make(map[string]int),
	}
}

// RecordDeviceState appends a snapshot of d to its history.
func (m *InvalidationManager) RecordDeviceState(d NormalizedDevice) {
	if d.ID == "" {
		m.logger.Warn().Str("name", d.Name).Msg("Not recording state for device without identity")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[d.ID]++
	snap := DeviceStateSnapshot{
		Seq:             m.seq[d.ID],
		DeviceID:        d.ID,
		NetworkAddress:  d.NetworkAddress,
		HardwareAddress: d.HardwareAddress,
		DiscoveryCount:  d.DiscoveryCount,
		Timestamp:       m.clock.Now(),
	}

	h := append(m.history[d.ID], snap)
	if len(h) > maxHistoryPerDevice {
		h = h[len(h)-maxHistoryPerDevice:]
	}
	m.history[d.ID] = h
}

// DetectChanges compares d against the two most recent snapshots of its
// history. Returns nil for a device without identity.
func (m *InvalidationManager) DetectChanges(d NormalizedDevice) *ChangeDetection {
	if d.ID == "" {
		m.logger.Error().Str("name", d.Name).Msg("Cannot detect changes for device without identity")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectLocked(d)
}

func (m *InvalidationManager) detectLocked(d NormalizedDevice) *ChangeDetection {
	newState := DeviceStateSnapshot{
		DeviceID:        d.ID,
		NetworkAddress:  d.NetworkAddress,
		HardwareAddress: d.HardwareAddress,
		DiscoveryCount:  d.DiscoveryCount,
		Timestamp:       m.clock.Now(),
	}

	h := m.history[d.ID]
	if len(h) == 0 {
		return &ChangeDetection{
			ChangeType: ChangeNewDevice,
			Confidence: changeConfidence[ChangeNewDevice],
			NewState:   newState,
		}
	}

	latest := h[len(h)-1]
	old := latest
	change := ChangeStable

	if differs(d.HardwareAddress, latest.HardwareAddress) {
		change = ChangeMAC
	} else if differs(d.NetworkAddress, latest.NetworkAddress) {
		change = ChangeIP
	} else if len(h) > 1 {
		prev := h[len(h)-2]
		switch {
		case differs(latest.HardwareAddress, prev.HardwareAddress):
			change, old = ChangeMAC, prev
		case differs(latest.NetworkAddress, prev.NetworkAddress):
			change, old = ChangeIP, prev
		}
	}

	return &ChangeDetection{
		ChangeType: change,
		Confidence: changeConfidence[change],
		OldState:   &old,
		NewState:   newState,
	}
}

// differs reports whether two addresses are both known and unequal.
func differs(a, b string) bool {
	return a != "" && b != "" && a != b
}

// Confidence returns how much the cached identity of id can be trusted, in
// [0,1]. Devices without history get 0.5.
func (m *InvalidationManager) Confidence(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confidenceLocked(id)
}

func (m *InvalidationManager) confidenceLocked(id string) float64 {
	h := m.history[id]
	if len(h) == 0 {
		return ttlLowConfidence
	}
	latest := h[len(h)-1]

	count := float64(max(latest.DiscoveryCount, 1)) / countSaturation
	count = min(count, 1)

	recency := recencyFactor(m.clock.Now().Sub(latest.Timestamp))

	stability := 0.5
	if len(h) > 1 {
		unchanged := 0
		for i := 1; i < len(h); i++ {
			if h[i].NetworkAddress == h[i-1].NetworkAddress && h[i].HardwareAddress == h[i-1].HardwareAddress {
				unchanged++
			}
		}
		stability = float64(unchanged) / float64(len(h)-1)
	}

	c := countWeight*count + recencyWeight*recency + stabilityWeight*stability
	return min(max(c, 0), 1)
}

func recencyFactor(age time.Duration) float64 {
	switch {
	case age <= recencyFresh:
		return 1
	case age >= recencyHorizon:
		return 0
	}
	return 1 - float64(age-recencyFresh)/float64(recencyHorizon-recencyFresh)
}

// AdaptiveTTL maps the confidence of id onto [MinAdaptiveTTL, MaxAdaptiveTTL].
func (m *InvalidationManager) AdaptiveTTL(id string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ttlForConfidence(m.confidenceLocked(id))
}

func ttlForConfidence(c float64) time.Duration {
	switch {
	case c <= ttlLowConfidence:
		return MinAdaptiveTTL
	case c >= ttlHighConfidence:
		return MaxAdaptiveTTL
	}
	frac := (c - ttlLowConfidence) / (ttlHighConfidence - ttlLowConfidence)
	return MinAdaptiveTTL + time.Duration(frac*float64(MaxAdaptiveTTL-MinAdaptiveTTL))
}

// ShouldInvalidate reports whether d should be dropped from a cache: an
// address change was detected with enough confidence, or the sighting is
// older than its adaptive TTL or MaxEntryAge.
func (m *InvalidationManager) ShouldInvalidate(d NormalizedDevice) bool {
	if d.ID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if det := m.detectLocked(d); det != nil {
		if (det.ChangeType == ChangeMAC || det.ChangeType == ChangeIP) && det.Confidence >= invalidationThreshold {
			return true
		}
	}
	return m.expiredLocked(d)
}

// Expired reports whether d is past its adaptive TTL or MaxEntryAge,
// ignoring address changes.
func (m *InvalidationManager) Expired(d NormalizedDevice) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked(d)
}

func (m *InvalidationManager) expiredLocked(d NormalizedDevice) bool {
	age := m.clock.Now().Sub(d.LastSeen)
	if age > MaxEntryAge {
		return true
	}
	return age > ttlForConfidence(m.confidenceLocked(d.ID))
}

// MarkAsStale appends an entry to the invalidation log and counts it.
func (m *InvalidationManager) MarkAsStale(id string, reason InvalidationReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.eventSeq++
	m.log = append(m.log, InvalidationEvent{Seq: m.eventSeq, DeviceID: id, Reason: reason, Timestamp: m.clock.Now()})
	if len(m.log) > maxInvalidationLog {
		m.log = m.log[len(m.log)-maxInvalidationLog:]
	}
	m.logger.Debug().Str("device_id", id).Str("reason", string(reason)).Msg("Device invalidated")
}

// DeviceHistory returns the retained snapshots for id, oldest first.
func (m *InvalidationManager) DeviceHistory(id string) []DeviceStateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeviceStateSnapshot(nil), m.history[id]...)
}

// InvalidationHistory returns up to limit of the most recent log entries,
// oldest first. A limit <= 0 returns everything retained.
func (m *InvalidationManager) InvalidationHistory(limit int) []InvalidationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.log
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]InvalidationEvent(nil), events...)
}

// Stats summarizes the tracked devices and the invalidation log.
func (m *InvalidationManager) Stats() InvalidationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := InvalidationStats{
		TrackedDevices: len(m.history),
		Invalidations:  m.total,
		ByReason:       make(map[InvalidationReason]int),
	}
	var total float64
	for id, h := range m.history {
		st.TotalSnapshots += len(h)
		total += m.confidenceLocked(id)
	}
	if len(m.history) > 0 {
		st.AverageConfidence = total / float64(len(m.history))
	}
	// ByReason covers the retained log only.
	for _, e := range m.log {
		st.ByReason[e.Reason]++
	}
	return st
}

// Reset drops all history and the invalidation log.
func (m *InvalidationManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = make(map[string][]DeviceStateSnapshot)
	m.seq = make(map[string]int)
	m.log = nil
	m.total = 0
}
