package discovery

import (
	"cmp"
	"slices"
	"time"
)

const (
	DefaultMaxCacheSize = 100
	DefaultCacheTTL     = time.Hour
	MinCacheTTL         = time.Minute
)

// CacheConfig reports the cache bounds.
type CacheConfig struct {
	MaxSize     int           `json:"max_size"`
	TTL         time.Duration `json:"ttl"`
	CurrentSize int           `json:"current_size"`
}

// lookupLocked finds the cache entry for d by primary id, then alternate id,
// then by any entry whose alternate id is d's primary id.
func (s *Service) lookupLocked(d NormalizedDevice) (string, bool) {
	if _, ok := s.cache[d.ID]; ok {
		return d.ID, true
	}
	if d.AlternateID != "" {
		if _, ok := s.cache[d.AlternateID]; ok {
			return d.AlternateID, true
		}
	}
	for key, e := range s.cache {
		if e.AlternateID != "" && e.AlternateID == d.ID {
			return key, true
		}
	}
	return "", false
}

// mergeLocked folds the devices of one discovery operation into the cache
// and returns the resulting entries in discovery order.
func (s *Service) mergeLocked(found []NormalizedDevice) ([]NormalizedDevice, []Event) {
	now := s.clock.Now()
	merged := make([]NormalizedDevice, 0, len(found))
	index := make(map[string]int)
	var events []Event

	for _, d := range found {
		key, ok := s.lookupLocked(d)
		if !ok {
			d.DiscoveryCount = 1
			s.cache[d.ID] = d
			s.metrics.RecordCacheMiss()
			s.invalidation.RecordDeviceState(d)

			index[d.ID] = len(merged)
			merged = append(merged, d)
			events = append(events, Event{Type: EventDeviceDiscovered, Device: &d, Timestamp: now})
			continue
		}

		existing := s.cache[key]
		if i, dup := index[key]; dup {
			// Same identity reported twice in one operation.
			updated := applySighting(existing, d, key)
			s.cache[key] = updated
			merged[i] = updated
			continue
		}
		s.metrics.RecordCacheHit()

		evtType := EventDeviceUpdated
		if differs(existing.NetworkAddress, d.NetworkAddress) || differs(existing.HardwareAddress, d.HardwareAddress) {
			probe := d
			probe.ID = existing.ID
			det := s.invalidation.DetectChanges(probe)
			if det != nil && det.Confidence >= invalidationThreshold &&
				(det.ChangeType == ChangeMAC || det.ChangeType == ChangeIP) {
				s.invalidation.MarkAsStale(existing.ID, ReasonChanged)
				evtType = EventDeviceChanged
				s.logger.Info().
					Str("device_id", existing.ID).
					Str("change", string(det.ChangeType)).
					Str("from", existing.NetworkAddress).
					Str("to", d.NetworkAddress).
					Msg("Device address changed")
			}
		}

		newKey := key
		if d.HardwareAddress != "" {
			newKey = d.ID
		}
		updated := applySighting(existing, d, newKey)
		updated.DiscoveryCount++

		if newKey != key {
			delete(s.cache, key)
		}
		s.cache[newKey] = updated
		s.invalidation.RecordDeviceState(updated)

		index[newKey] = len(merged)
		merged = append(merged, updated)
		events = append(events, Event{Type: evtType, Device: &updated, Timestamp: now})
	}
	return merged, events
}

// applySighting overlays a fresh sighting onto a cached entry.
func applySighting(existing, d NormalizedDevice, key string) NormalizedDevice {
	u := existing
	u.ID = key
	if d.HardwareAddress != "" {
		u.HardwareAddress = d.HardwareAddress
	}
	if d.NetworkAddress != "" {
		u.NetworkAddress = d.NetworkAddress
	}
	if u.HardwareAddress != "" && u.ID == u.HardwareAddress {
		u.AlternateID = u.NetworkAddress
	}
	if d.Name != "" && d.Name != d.ID {
		u.Name = d.Name
	}
	if d.FirmwareVersion != "" {
		u.FirmwareVersion = d.FirmwareVersion
	}
	if d.Port != 0 {
		u.Port = d.Port
	}
	if d.SignalStrength != nil {
		u.SignalStrength = d.SignalStrength
	}
	if d.LastSeen.After(u.LastSeen) {
		u.LastSeen = d.LastSeen
	}
	u.DiscoveryMethod = d.DiscoveryMethod
	return u
}

// evictExpiredLocked drops entries older than the cache TTL or their
// adaptive TTL.
func (s *Service) evictExpiredLocked() []Event {
	now := s.clock.Now()
	var events []Event
	for key, d := range s.cache {
		if now.Sub(d.LastSeen) <= s.cacheTTL && !s.invalidation.Expired(d) {
			continue
		}
		delete(s.cache, key)
		s.invalidation.MarkAsStale(key, ReasonTTLExpired)
		s.metrics.RecordCacheEviction()
		events = append(events, Event{Type: EventDeviceEvicted, Device: &d, Timestamp: now})
	}
	if len(events) > 0 {
		s.logger.Debug().Int("evicted", len(events)).Msg("Evicted expired cache entries")
	}
	return events
}

// enforceSizeLocked evicts the least recently seen entries beyond maxCacheSize.
func (s *Service) enforceSizeLocked() []Event {
	over := len(s.cache) - s.maxCacheSize
	if over <= 0 {
		return nil
	}

	entries := make([]NormalizedDevice, 0, len(s.cache))
	for _, d := range s.cache {
		entries = append(entries, d)
	}
	slices.SortFunc(entries, func(a, b NormalizedDevice) int {
		if c := a.LastSeen.Compare(b.LastSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	now := s.clock.Now()
	events := make([]Event, 0, over)
	for _, d := range entries[:over] {
		delete(s.cache, d.ID)
		s.metrics.RecordCacheEviction()
		events = append(events, Event{Type: EventDeviceEvicted, Device: &d, Timestamp: now})
	}
	s.logger.Debug().Int("evicted", over).Int("max_size", s.maxCacheSize).Msg("Cache over capacity")
	return events
}

// CachedDevices returns the cached devices, most recently seen first when
// sortByRecency is set, otherwise ordered by id.
func (s *Service) CachedDevices(sortByRecency bool) []NormalizedDevice {
	s.mu.Lock()
	out := make([]NormalizedDevice, 0, len(s.cache))
	for _, d := range s.cache {
		out = append(out, d)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b NormalizedDevice) int {
		if sortByRecency {
			if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Device returns the cached device with the given primary or alternate id.
func (s *Service) Device(id string) (NormalizedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.lookupLocked(NormalizedDevice{ID: id, AlternateID: id}); ok {
		return s.cache[key], nil
	}
	return NormalizedDevice{}, ErrDeviceNotFound
}

// ClearCache removes every cached device.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]NormalizedDevice)
	s.metrics.UpdateCacheMetrics(0, s.maxCacheSize)
	s.mu.Unlock()
	s.events.publish(Event{Type: EventCacheCleared, Timestamp: s.clock.Now()})
	s.logger.Info().Msg("Device cache cleared")
}

// SetMaxCacheSize sets the capacity, minimum 1, evicting immediately if needed.
func (s *Service) SetMaxCacheSize(n int) {
	s.mu.Lock()
	s.maxCacheSize = max(n, 1)
	events := s.enforceSizeLocked()
	s.metrics.UpdateCacheMetrics(len(s.cache), s.maxCacheSize)
	s.mu.Unlock()
	s.events.publish(events...)
}

// SetCacheTTL sets the cache TTL, minimum MinCacheTTL.
func (s *Service) SetCacheTTL(ttl time.Duration) {
	s.mu.Lock()
	s.cacheTTL = max(ttl, MinCacheTTL)
	s.mu.Unlock()
}

// CacheConfig returns the cache bounds and current size.
func (s *Service) CacheConfig() CacheConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheConfig{MaxSize: s.maxCacheSize, TTL: s.cacheTTL, CurrentSize: len(s.cache)}
}

// Restore loads previously persisted devices into the cache. Entries
// already cached are kept. Devices beyond the capacity are evicted and
// published like any other eviction.
func (s *Service) Restore(devices []NormalizedDevice) {
	s.mu.Lock()

	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		if _, ok := s.cache[d.ID]; ok {
			continue
		}
		d.DiscoveryCount = max(d.DiscoveryCount, 1)
		s.cache[d.ID] = d
		s.invalidation.RecordDeviceState(d)
	}
	events := s.enforceSizeLocked()
	s.metrics.UpdateCacheMetrics(len(s.cache), s.maxCacheSize)
	s.mu.Unlock()
	s.events.publish(events...)
}
