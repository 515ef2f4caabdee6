package methods

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urmzd/lanscout/pkg/discovery"
	"go.uber.org/multierr"
)

const defaultManualPort = 80

// ManualProber checks a fixed list of operator-entered addresses.
type ManualProber struct {
	// Addresses are "host" or "host:port" entries.
	Addresses []string
	// HardwareAddresses optionally pins a MAC to a host.
	HardwareAddresses map[string]string
}

// Discover probes each address concurrently. Unreachable addresses are
// reported only when nothing answered. An empty address list finds nothing
// and is not an error.
func (m *ManualProber) Discover(ctx context.Context, timeout time.Duration) ([]discovery.RawDevice, error) {
	if len(m.Addresses) == 0 {
		return nil, nil
	}

	perProbe := probeTimeout(timeout)
	var (
		mu    sync.Mutex
		found []discovery.RawDevice
		errs  error
		wg    sync.WaitGroup
	)

	for _, addr := range m.Addresses {
		host, port, err := splitHostPort(addr, defaultManualPort)
		if err != nil {
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := probeTCP(ctx, host, port, perProbe)

			mu.Lock()
			defer mu.Unlock()
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d unreachable", host, port))
				return
			}
			found = append(found, discovery.RawDevice{
				ID:              addr,
				NetworkAddress:  host,
				Port:            port,
				HardwareAddress: m.HardwareAddresses[host],
				LastSeen:        time.Now(),
			})
		}()
	}
	wg.Wait()

	if len(found) == 0 {
		return nil, errs
	}
	return found, nil
}
