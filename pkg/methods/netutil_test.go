package methods

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCIDR(t *testing.T) {
	tests := []struct {
		cidr string
		want []string
	}{
		{"192.168.1.0/30", []string{"192.168.1.1", "192.168.1.2"}},
		{"10.0.0.8/31", []string{"10.0.0.8", "10.0.0.9"}},
		{"10.0.0.7/32", []string{"10.0.0.7"}},
		{" 172.16.0.5/30 ", []string{"172.16.0.5", "172.16.0.6"}},
	}
	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			got, err := ExpandCIDR(tt.cidr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandCIDR_Limits(t *testing.T) {
	ips, err := ExpandCIDR("10.1.0.0/20")
	require.NoError(t, err)
	assert.Len(t, ips, maxHostsPerSubnet-2)

	_, err = ExpandCIDR("10.0.0.0/19")
	assert.Error(t, err)

	_, err = ExpandCIDR("fd00::/120")
	assert.Error(t, err)

	_, err = ExpandCIDR("not-a-subnet")
	assert.Error(t, err)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("10.0.0.2", 80)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", host)
	assert.Equal(t, 80, port)

	host, port, err = splitHostPort("printer.lan:9100", 80)
	require.NoError(t, err)
	assert.Equal(t, "printer.lan", host)
	assert.Equal(t, 9100, port)

	_, _, err = splitHostPort("10.0.0.2:99999", 80)
	assert.Error(t, err)

	_, _, err = splitHostPort("  ", 80)
	assert.Error(t, err)
}

func TestProbeTimeout(t *testing.T) {
	assert.Equal(t, time.Second, probeTimeout(0))
	assert.Equal(t, 100*time.Millisecond, probeTimeout(100*time.Millisecond))
	assert.Equal(t, 500*time.Millisecond, probeTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, probeTimeout(time.Minute))
}

func TestNarrowSubnet(t *testing.T) {
	_, wide, err := net.ParseCIDR("10.1.2.3/16")
	require.NoError(t, err)
	wide.IP = net.ParseIP("10.1.2.3")
	assert.Equal(t, "10.1.2.0/24", narrowSubnet(wide))

	_, narrow, err := net.ParseCIDR("192.168.1.77/28")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.64/28", narrowSubnet(narrow))
}
