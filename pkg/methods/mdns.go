package methods

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
)

// DefaultMDNSServices are browsed when a browser has none configured.
var DefaultMDNSServices = []string{"_http._tcp", "_hap._tcp", "_esphomelib._tcp", "_wled._tcp"}

const defaultMDNSDomain = "local."

// MDNSBrowser discovers devices that announce themselves over DNS-SD.
type MDNSBrowser struct {
	Services  []string
	Domain    string
	Interface string
}

// Discover browses every service type until the attempt deadline and
// returns one record per announced instance.
func (b *MDNSBrowser) Discover(ctx context.Context, timeout time.Duration) ([]discovery.RawDevice, error) {
	services := b.Services
	if len(services) == 0 {
		services = DefaultMDNSServices
	}
	domain := b.Domain
	if domain == "" {
		domain = defaultMDNSDomain
	}

	opts, err := b.clientOptions()
	if err != nil {
		return nil, err
	}

	// Leave headroom to hand results back before the attempt deadline.
	browseCtx, cancel := context.WithTimeout(ctx, timeout*9/10)
	defer cancel()

	byName := make(map[string]discovery.RawDevice)
	var (
		mu   sync.Mutex
		errs []string
		wg   sync.WaitGroup
	)

	for _, svc := range services {
		entries := make(chan *zeroconf.ServiceEntry)
		removed := make(chan *zeroconf.ServiceEntry)

		wg.Add(1)
		go func(entries, removed <-chan *zeroconf.ServiceEntry) {
			defer wg.Done()
			for {
				select {
				case entry, ok := <-entries:
					if !ok {
						return
					}
					d, ok := entryToDevice(entry)
					if !ok {
						continue
					}
					mu.Lock()
					byName[entry.Instance+"."+svc] = d
					mu.Unlock()
				case _, ok := <-removed:
					if !ok {
						removed = nil
					}
				case <-browseCtx.Done():
					return
				}
			}
		}(entries, removed)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := zeroconf.Browse(browseCtx, svc, domain, entries, removed, opts...); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", svc, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	devices := make([]discovery.RawDevice, 0, len(byName))
	for _, d := range byName {
		devices = append(devices, d)
	}

	if len(devices) == 0 && len(errs) == len(services) {
		return nil, fmt.Errorf("mdns browse failed: %s", strings.Join(errs, "; "))
	}
	log.Debug().Int("services", len(services)).Int("devices", len(devices)).Msg("mDNS browse finished")
	return devices, nil
}

func (b *MDNSBrowser) clientOptions() ([]zeroconf.ClientOption, error) {
	if b.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(b.Interface)
	if err != nil {
		return nil, fmt.Errorf("mdns interface %q: %w", b.Interface, err)
	}
	return []zeroconf.ClientOption{zeroconf.SelectIfaces([]net.Interface{*iface})}, nil
}

// entryToDevice converts a DNS-SD entry. TXT keys mac, id, fw, version, name
// and fn are recognized.
func entryToDevice(e *zeroconf.ServiceEntry) (discovery.RawDevice, bool) {
	if e == nil {
		return discovery.RawDevice{}, false
	}
	txt := parseTXT(e.Text)

	d := discovery.RawDevice{
		ID:              e.Instance,
		Name:            firstNonEmpty(txt["name"], txt["fn"], e.Instance),
		HardwareAddress: firstNonEmpty(txt["mac"], macFromID(txt["id"])),
		FirmwareVersion: firstNonEmpty(txt["fw"], txt["version"], txt["ver"]),
		Port:            e.Port,
		LastSeen:        time.Now(),
	}
	switch {
	case len(e.AddrIPv4) > 0:
		d.NetworkAddress = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		d.NetworkAddress = e.AddrIPv6[0].String()
	default:
		d.NetworkAddress = strings.TrimSuffix(e.HostName, ".")
	}
	return d, d.ID != "" || d.NetworkAddress != ""
}

func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[strings.ToLower(k)] = v
	}
	return out
}

// macFromID returns id when it parses as a MAC address.
func macFromID(id string) string {
	if _, err := net.ParseMAC(id); err == nil {
		return id
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
