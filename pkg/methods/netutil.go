package methods

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// maxHostsPerSubnet caps CIDR expansion at a /20.
const maxHostsPerSubnet = 4096

// ExpandCIDR returns the host addresses of an IPv4 CIDR, excluding the
// network and broadcast addresses for prefixes shorter than /31.
func ExpandCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return nil, fmt.Errorf("parse subnet %q: %w", cidr, err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("subnet %q: only IPv4 is supported", cidr)
	}

	ones, bits := ipnet.Mask.Size()
	if bits-ones > 12 {
		return nil, fmt.Errorf("subnet %q is larger than %d hosts", cidr, maxHostsPerSubnet)
	}

	var ips []string
	for cur := append(net.IP(nil), ipnet.IP.To4()...); ipnet.Contains(cur); inc(cur) {
		ips = append(ips, cur.String())
	}

	if ones < 31 && len(ips) > 2 {
		ips = ips[1 : len(ips)-1]
	}
	return ips, nil
}

// inc increments an IP address in place.
func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

// splitHostPort splits "host[:port]" and applies defaultPort when the port
// is missing.
func splitHostPort(addr string, defaultPort int) (string, int, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0, fmt.Errorf("empty address")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port present
		return strings.Trim(addr, "[]"), defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}

// probeTCP reports whether host accepts a TCP connection on port.
func probeTCP(ctx context.Context, host string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// firstOpenPort returns the first of ports that accepts a connection, or 0.
func firstOpenPort(ctx context.Context, host string, ports []int, timeout time.Duration) int {
	for _, p := range ports {
		if ctx.Err() != nil {
			return 0
		}
		if probeTCP(ctx, host, p, timeout) {
			return p
		}
	}
	return 0
}

// lookupName returns the reverse DNS name of ip without the trailing dot.
func lookupName(ctx context.Context, ip string) string {
	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

// LocalSubnets returns the IPv4 networks of the host's up, non-loopback
// interfaces. Networks wider than a /24 are narrowed to the /24 around the
// interface address.
func LocalSubnets() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var subnets []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			subnet := narrowSubnet(ipnet)
			if !seen[subnet] {
				seen[subnet] = true
				subnets = append(subnets, subnet)
			}
		}
	}
	return subnets
}

func narrowSubnet(ipnet *net.IPNet) string {
	ones, _ := ipnet.Mask.Size()
	if ones < 24 {
		ones = 24
	}
	mask := net.CIDRMask(ones, 32)
	n := net.IPNet{IP: ipnet.IP.To4().Mask(mask), Mask: mask}
	return n.String()
}

// probeTimeout derives a per-connection timeout from the attempt budget.
func probeTimeout(budget time.Duration) time.Duration {
	t := budget / 4
	switch {
	case t <= 0:
		return time.Second
	case t > 2*time.Second:
		return 2 * time.Second
	case t < 100*time.Millisecond:
		return 100 * time.Millisecond
	}
	return t
}
