package methods

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
	"golang.org/x/sync/errgroup"
)

// DefaultScanPorts are probed when a scanner has no ports configured.
var DefaultScanPorts = []int{80, 443, 8080, 8443, 1883, 5683}

const defaultScanConcurrency = 64

// NetworkScanner sweeps subnets with TCP connect probes.
type NetworkScanner struct {
	Subnets     []string
	Ports       []int
	Concurrency int
	// ResolveNames enables reverse DNS lookups for live hosts.
	ResolveNames bool

	// arp is replaced in tests.
	arp func() ARPTable
}

// Discover probes every host of the configured subnets, or of the local
// interface subnets when none are configured. The sweep stops early enough
// to return partial results inside the attempt deadline.
func (s *NetworkScanner) Discover(ctx context.Context, timeout time.Duration) ([]discovery.RawDevice, error) {
	subnets := s.Subnets
	if len(subnets) == 0 {
		subnets = LocalSubnets()
	}
	var hosts []string
	for _, subnet := range subnets {
		ips, err := ExpandCIDR(subnet)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, ips...)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("network scan: no subnets configured or detected")
	}

	ports := s.Ports
	if len(ports) == 0 {
		ports = DefaultScanPorts
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultScanConcurrency
	}

	sweepCtx, cancel := context.WithTimeout(ctx, timeout*9/10)
	defer cancel()

	perProbe := probeTimeout(timeout)
	var (
		mu    sync.Mutex
		found []discovery.RawDevice
	)

	g, gctx := errgroup.WithContext(sweepCtx)
	g.SetLimit(limit)
	for _, host := range hosts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			port := firstOpenPort(gctx, host, ports, perProbe)
			if port == 0 {
				return nil
			}
			mu.Lock()
			found = append(found, discovery.RawDevice{NetworkAddress: host, Port: port, LastSeen: time.Now()})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	readARP := s.arp
	if readARP == nil {
		readARP = ReadARPTable
	}
	table := readARP()
	for i := range found {
		found[i].HardwareAddress = table[found[i].NetworkAddress]
		if s.ResolveNames && sweepCtx.Err() == nil {
			found[i].Name = lookupName(sweepCtx, found[i].NetworkAddress)
		}
	}

	log.Debug().
		Int("hosts", len(hosts)).
		Int("alive", len(found)).
		Bool("truncated", sweepCtx.Err() != nil).
		Msg("Network scan finished")
	return found, nil
}
