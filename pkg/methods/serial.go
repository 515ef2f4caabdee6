package methods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/zigbee"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialEnumerator lists locally attached serial adapters.
type SerialEnumerator struct {
	USBOnly bool
	// Probe opens each port to confirm it is usable.
	Probe    bool
	BaudRate int
	// IdentifyZigbee queries USB ports for an EZSP coordinator and, when one
	// answers, uses its EUI64 as the hardware address.
	IdentifyZigbee bool

	// list and identify are replaced in tests.
	list     func() ([]*enumerator.PortDetails, error)
	identify func(ctx context.Context, path string, baud int) (zigbee.Coordinator, error)
}

const zigbeeProbeTimeout = 1500 * time.Millisecond

// Discover enumerates serial ports. A USB serial number, when present, is
// used as the source identifier so a device keeps its identity across
// replugs.
func (s *SerialEnumerator) Discover(ctx context.Context, _ time.Duration) ([]discovery.RawDevice, error) {
	list := s.list
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	ports, err := list()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var devices []discovery.RawDevice
	for _, p := range ports {
		if ctx.Err() != nil {
			break
		}
		if p == nil || (s.USBOnly && !p.IsUSB) {
			continue
		}
		if s.Probe && !s.usable(p.Name) {
			continue
		}
		d := portToDevice(p)
		if s.IdentifyZigbee && p.IsUSB {
			s.identifyCoordinator(ctx, p.Name, &d)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (s *SerialEnumerator) identifyCoordinator(ctx context.Context, name string, d *discovery.RawDevice) {
	identify := s.identify
	if identify == nil {
		identify = zigbee.Probe
	}

	probeCtx, cancel := context.WithTimeout(ctx, zigbeeProbeTimeout)
	defer cancel()
	c, err := identify(probeCtx, name, s.BaudRate)
	switch {
	case errors.Is(err, zigbee.ErrNotCoordinator):
		log.Debug().Str("port", name).Msg("No Zigbee coordinator on port")
		return
	case err != nil:
		log.Warn().Err(err).Str("port", name).Msg("Zigbee probe failed")
		return
	}
	d.HardwareAddress = c.EUI64
	d.FirmwareVersion = fmt.Sprintf("EZSP %d / EmberZNet %s", c.ProtocolVersion, c.StackVersion)
	d.Name = "Zigbee coordinator: " + d.Name
}

func (s *SerialEnumerator) usable(name string) bool {
	baud := s.BaudRate
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Debug().Err(err).Str("port", name).Msg("Serial port not usable")
		return false
	}
	_ = port.Close()
	return true
}

// portToDevice leaves NetworkAddress empty so the source id becomes the
// cache identity.
func portToDevice(p *enumerator.PortDetails) discovery.RawDevice {
	d := discovery.RawDevice{
		ID:       p.Name,
		Name:     p.Product,
		LastSeen: time.Now(),
	}
	if p.IsUSB {
		if p.SerialNumber != "" {
			d.ID = "usb:" + strings.ToLower(p.VID+":"+p.PID) + ":" + p.SerialNumber
		}
		if d.Name == "" {
			d.Name = fmt.Sprintf("USB %s:%s", p.VID, p.PID)
		}
	}
	switch {
	case d.Name == "":
		d.Name = p.Name
	case d.ID != p.Name:
		d.Name += " (" + p.Name + ")"
	}
	return d
}
