package methods

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/lanscout/pkg/zigbee"
	"go.bug.st/serial/enumerator"
)

func TestEntryToDevice(t *testing.T) {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "living-room-plug", Service: "_http._tcp", Domain: "local."},
		HostName:      "plug-1.local.",
		Port:          80,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
		Text:          []string{"mac=a4:cf:12:00:11:22", "FW=1.4.2", "fn=Living Room Plug"},
	}

	d, ok := entryToDevice(e)
	require.True(t, ok)
	assert.Equal(t, "living-room-plug", d.ID)
	assert.Equal(t, "Living Room Plug", d.Name)
	assert.Equal(t, "a4:cf:12:00:11:22", d.HardwareAddress)
	assert.Equal(t, "1.4.2", d.FirmwareVersion)
	assert.Equal(t, "192.168.1.50", d.NetworkAddress)
	assert.Equal(t, 80, d.Port)
}

func TestEntryToDevice_HostnameFallback(t *testing.T) {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "bridge", Service: "_hap._tcp", Domain: "local."},
		HostName:      "bridge.local.",
		Text:          []string{"id=11:22:33:44:55:66", "flag"},
	}

	d, ok := entryToDevice(e)
	require.True(t, ok)
	assert.Equal(t, "bridge.local", d.NetworkAddress)
	assert.Equal(t, "11:22:33:44:55:66", d.HardwareAddress)
	assert.Equal(t, "bridge", d.Name)

	_, ok = entryToDevice(nil)
	assert.False(t, ok)
}

func TestSysInfoToDevice(t *testing.T) {
	vars := []gosnmp.SnmpPDU{
		{Name: oidSysName, Type: gosnmp.OctetString, Value: []byte("core-switch ")},
		{Name: oidSysDescr, Type: gosnmp.OctetString, Value: []byte("RouterOS 7.14")},
	}

	d, ok := sysInfoToDevice("10.0.0.1", 161, vars)
	require.True(t, ok)
	assert.Equal(t, "core-switch", d.Name)
	assert.Equal(t, "RouterOS 7.14", d.FirmwareVersion)
	assert.Equal(t, "10.0.0.1", d.NetworkAddress)
	assert.Equal(t, 161, d.Port)
}

func TestSysInfoToDevice_NoSuchObject(t *testing.T) {
	vars := []gosnmp.SnmpPDU{
		{Name: oidSysName, Type: gosnmp.NoSuchObject},
		{Name: oidSysDescr, Type: gosnmp.NoSuchInstance},
	}
	_, ok := sysInfoToDevice("10.0.0.1", 161, vars)
	assert.False(t, ok)
}

func TestSNMPProber_NoTargets(t *testing.T) {
	_, err := (&SNMPProber{}).Discover(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestSerialEnumerator(t *testing.T) {
	s := &SerialEnumerator{
		USBOnly: true,
		list: func() ([]*enumerator.PortDetails, error) {
			return []*enumerator.PortDetails{
				{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10C4", PID: "EA60", SerialNumber: "0001", Product: "CP2102"},
				{Name: "/dev/ttyACM0", IsUSB: true, VID: "1A86", PID: "55D4"},
				{Name: "/dev/ttyS0"},
			}, nil
		},
	}

	devices, err := s.Discover(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "usb:10c4:ea60:0001", devices[0].ID)
	assert.Equal(t, "CP2102 (/dev/ttyUSB0)", devices[0].Name)
	assert.Empty(t, devices[0].NetworkAddress)

	assert.Equal(t, "/dev/ttyACM0", devices[1].ID)
	assert.Equal(t, "USB 1A86:55D4", devices[1].Name)
}

func TestSerialEnumerator_ListError(t *testing.T) {
	s := &SerialEnumerator{list: func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("no sysfs")
	}}
	_, err := s.Discover(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestSerialEnumerator_IdentifiesZigbeeCoordinator(t *testing.T) {
	s := &SerialEnumerator{
		USBOnly:        true,
		IdentifyZigbee: true,
		list: func() ([]*enumerator.PortDetails, error) {
			return []*enumerator.PortDetails{
				{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10C4", PID: "EA60", SerialNumber: "0001", Product: "Sonoff Zigbee 3.0"},
				{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1A86", PID: "7523"},
			}, nil
		},
		identify: func(ctx context.Context, path string, baud int) (zigbee.Coordinator, error) {
			if path != "/dev/ttyUSB0" {
				return zigbee.Coordinator{}, zigbee.ErrNotCoordinator
			}
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return zigbee.Coordinator{EUI64: "00:12:4b:00:01:02:03:04", ProtocolVersion: 13, StackVersion: "7.4.0.0"}, nil
		},
	}

	devices, err := s.Discover(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "00:12:4b:00:01:02:03:04", devices[0].HardwareAddress)
	assert.Equal(t, "EZSP 13 / EmberZNet 7.4.0.0", devices[0].FirmwareVersion)
	assert.Contains(t, devices[0].Name, "Zigbee coordinator")

	assert.Empty(t, devices[1].HardwareAddress)
}
