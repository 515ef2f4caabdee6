package methods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
	"golang.org/x/sync/errgroup"
)

const (
	oidSysDescr = ".1.3.6.1.2.1.1.1.0"
	oidSysName  = ".1.3.6.1.2.1.1.5.0"

	defaultSNMPPort        = 161
	defaultSNMPCommunity   = "public"
	defaultSNMPConcurrency = 32
)

var errNoSNMPData = errors.New("no SNMP data returned")

// SNMPProber queries sysName and sysDescr from SNMPv2c agents.
type SNMPProber struct {
	// Targets are individual hosts; Subnets are expanded to hosts.
	Targets     []string
	Subnets     []string
	Community   string
	Port        uint16
	Concurrency int
}

// Discover queries every target. Hosts without an agent are skipped.
func (p *SNMPProber) Discover(ctx context.Context, timeout time.Duration) ([]discovery.RawDevice, error) {
	hosts := append([]string(nil), p.Targets...)
	for _, subnet := range p.Subnets {
		ips, err := ExpandCIDR(subnet)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, ips...)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("snmp: no targets configured")
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = defaultSNMPConcurrency
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout*9/10)
	defer cancel()

	perQuery := probeTimeout(timeout)
	var (
		mu    sync.Mutex
		found []discovery.RawDevice
	)

	g, gctx := errgroup.WithContext(pollCtx)
	g.SetLimit(limit)
	for _, host := range hosts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d, err := p.querySysInfo(gctx, host, perQuery)
			if err != nil {
				log.Trace().Err(err).Str("target", host).Msg("SNMP query failed")
				return nil
			}
			mu.Lock()
			found = append(found, d)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int("targets", len(hosts)).Int("agents", len(found)).Msg("SNMP poll finished")
	return found, nil
}

func (p *SNMPProber) client(ctx context.Context, target string, timeout time.Duration) *gosnmp.GoSNMP {
	community := p.Community
	if community == "" {
		community = defaultSNMPCommunity
	}
	port := p.Port
	if port == 0 {
		port = defaultSNMPPort
	}
	return &gosnmp.GoSNMP{
		Target:    target,
		Port:      port,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
		Context:   ctx,
	}
}

func (p *SNMPProber) querySysInfo(ctx context.Context, target string, timeout time.Duration) (discovery.RawDevice, error) {
	client := p.client(ctx, target, timeout)
	if err := client.Connect(); err != nil {
		return discovery.RawDevice{}, fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{oidSysName, oidSysDescr})
	if err != nil {
		return discovery.RawDevice{}, fmt.Errorf("get: %w", err)
	}
	if result.Error != gosnmp.NoError {
		return discovery.RawDevice{}, fmt.Errorf("agent error: %s", result.Error)
	}

	d, ok := sysInfoToDevice(target, int(client.Port), result.Variables)
	if !ok {
		return discovery.RawDevice{}, errNoSNMPData
	}
	return d, nil
}

// sysInfoToDevice maps system group variables onto a device record.
func sysInfoToDevice(target string, port int, vars []gosnmp.SnmpPDU) (discovery.RawDevice, bool) {
	d := discovery.RawDevice{NetworkAddress: target, Port: port, LastSeen: time.Now()}
	found := false
	for _, v := range vars {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			continue
		}
		if v.Type != gosnmp.OctetString {
			continue
		}
		b, ok := v.Value.([]byte)
		if !ok {
			continue
		}
		found = true
		switch v.Name {
		case oidSysName:
			d.Name = strings.TrimSpace(string(b))
		case oidSysDescr:
			d.FirmwareVersion = strings.TrimSpace(string(b))
		}
	}
	return d, found
}
