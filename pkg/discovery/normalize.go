package discovery

import (
	"net"
	"strings"
	"time"
)

// Normalize assigns a raw record its cache identity. A hardware address wins
// over a network address; the network address then becomes the alternate id
// so the device can be matched by either. Returns false when the record has
// no usable identity.
func Normalize(raw RawDevice, method string, now time.Time) (NormalizedDevice, bool) {
	mac := NormalizeHardwareAddress(raw.HardwareAddress)
	addr := strings.TrimSpace(raw.NetworkAddress)

	d := NormalizedDevice{
		Name:            strings.TrimSpace(raw.Name),
		FirmwareVersion: raw.FirmwareVersion,
		HardwareAddress: mac,
		NetworkAddress:  addr,
		Port:            raw.Port,
		SignalStrength:  raw.SignalStrength,
		LastSeen:        raw.LastSeen,
		DiscoveryMethod: method,
	}
	if d.LastSeen.IsZero() {
		d.LastSeen = now
	}

	switch {
	case mac != "":
		d.ID = mac
		d.AlternateID = addr
	case addr != "":
		d.ID = addr
	default:
		d.ID = strings.TrimSpace(raw.ID)
	}
	if d.ID == "" {
		return NormalizedDevice{}, false
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	return d, true
}

// NormalizeHardwareAddress returns the canonical upper-case, colon separated
// form of a MAC address. Values that do not parse are upper-cased as is.
func NormalizeHardwareAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if hw, err := net.ParseMAC(s); err == nil {
		return strings.ToUpper(hw.String())
	}
	return strings.ToUpper(strings.ReplaceAll(s, "-", ":"))
}
