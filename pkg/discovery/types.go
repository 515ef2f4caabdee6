package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownMethod indicates an executor has no implementation for a method name
	ErrUnknownMethod = errors.New("unknown discovery method")

	// ErrInvalidStrategy indicates a strategy name could not be parsed
	ErrInvalidStrategy = errors.New("invalid discovery strategy")

	// ErrDeviceNotFound indicates a device is not in the cache
	ErrDeviceNotFound = errors.New("device not found in cache")
)

// Built-in method names.
const (
	MethodMDNS        = "mdns"
	MethodNetworkScan = "network_scan"
	MethodSNMP        = "snmp"
	MethodSerial      = "serial"
	MethodManual      = "manual"
)

// Executor performs a single attempt of the named discovery method.
// A nil error with zero devices means the method ran but found nothing.
type Executor func(ctx context.Context, method string, timeout time.Duration) ([]RawDevice, error)

// RawDevice is a device record as reported by a discovery method, before
// identity normalization.
type RawDevice struct {
	ID              string
	Name            string
	HardwareAddress string
	NetworkAddress  string
	Port            int
	FirmwareVersion string
	SignalStrength  *int
	// LastSeen is the time the source observed the device. Zero means now.
	LastSeen time.Time
}

// NormalizedDevice is a device under its stable cache identity.
type NormalizedDevice struct {
	ID              string    `json:"id"`
	AlternateID     string    `json:"alternate_id,omitempty"`
	Name            string    `json:"name"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	HardwareAddress string    `json:"hardware_address,omitempty"`
	NetworkAddress  string    `json:"network_address,omitempty"`
	Port            int       `json:"port,omitempty"`
	SignalStrength  *int      `json:"signal_strength,omitempty"`
	LastSeen        time.Time `json:"last_seen"`
	DiscoveryMethod string    `json:"discovery_method"`
	DiscoveryCount  int       `json:"discovery_count"`
}

// Result is the outcome of one discovery operation. It is shared verbatim by
// every caller coalesced into the same operation.
type Result struct {
	Devices   []NormalizedDevice `json:"devices"`
	Method    string             `json:"method"`
	Duration  time.Duration      `json:"duration"`
	Errors    []string           `json:"errors,omitempty"`
	HasErrors bool               `json:"has_errors"`
	Cancelled bool               `json:"cancelled,omitempty"`
}

// Strategy selects how the method queue runs its methods.
type Strategy int

const (
	StrategySequential Strategy = iota
	StrategyRace
	StrategyHybrid
)

var strategyNames = map[Strategy]string{
	StrategySequential: "sequential",
	StrategyRace:       "race",
	StrategyHybrid:     "hybrid",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts a strategy name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Method is one entry in the method queue's table.
type Method struct {
	Name     string        `json:"name" yaml:"name"`
	Priority int           `json:"priority" yaml:"priority"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	Retries  int           `json:"retries" yaml:"retries"`
	Enabled  bool          `json:"enabled" yaml:"enabled"`
}

// MarshalJSON encodes the timeout in milliseconds.
func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(methodJSON{
		Name:      m.Name,
		Priority:  m.Priority,
		TimeoutMs: m.Timeout.Milliseconds(),
		Retries:   m.Retries,
		Enabled:   m.Enabled,
	})
}

func (m *Method) UnmarshalJSON(data []byte) error {
	var raw methodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Method{
		Name:     raw.Name,
		Priority: raw.Priority,
		Timeout:  time.Duration(raw.TimeoutMs) * time.Millisecond,
		Retries:  raw.Retries,
		Enabled:  raw.Enabled,
	}
	return nil
}

type methodJSON struct {
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	TimeoutMs int64  `json:"timeout_ms"`
	Retries   int    `json:"retries"`
	Enabled   bool   `json:"enabled"`
}

// DefaultMethods returns the built-in method table.
func DefaultMethods() []Method {
	return []Method{
		{Name: MethodMDNS, Priority: 9, Timeout: 5 * time.Second, Retries: 1, Enabled: true},
		{Name: MethodNetworkScan, Priority: 6, Timeout: 15 * time.Second, Retries: 0, Enabled: true},
		{Name: MethodSNMP, Priority: 5, Timeout: 10 * time.Second, Retries: 0, Enabled: false},
		{Name: MethodSerial, Priority: 4, Timeout: 2 * time.Second, Retries: 0, Enabled: false},
		{Name: MethodManual, Priority: 3, Timeout: 3 * time.Second, Retries: 0, Enabled: true},
	}
}

// defaultPriority returns the built-in priority for a method name.
func defaultPriority(name string) (int, bool) {
	for _, m := range DefaultMethods() {
		if m.Name == name {
			return m.Priority, true
		}
	}
	return 0, false
}

// EventType identifies a service event.
type EventType string

const (
	EventDeviceDiscovered   EventType = "device_discovered"
	EventDeviceUpdated      EventType = "device_updated"
	EventDeviceChanged      EventType = "device_changed"
	EventDeviceEvicted      EventType = "device_evicted"
	EventDiscoveryCompleted EventType = "discovery_completed"
	EventDiscoveryCancelled EventType = "discovery_cancelled"
	EventCacheCleared       EventType = "cache_cleared"
)

// Event is published to subscribers as the cache changes.
type Event struct {
	Type      EventType         `json:"type"`
	Device    *NormalizedDevice `json:"device,omitempty"`
	Result    *Result           `json:"result,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
