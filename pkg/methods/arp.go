package methods

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/urmzd/lanscout/pkg/discovery"
)

const procARPPath = "/proc/net/arp"

// ARPTable maps IPv4 addresses to hardware addresses.
type ARPTable map[string]string

// ParseARPTable reads the Linux /proc/net/arp format. Incomplete entries are
// skipped.
func ParseARPTable(r io.Reader) (ARPTable, error) {
	table := make(ARPTable)
	scanner := bufio.NewScanner(r)

	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		ip, flags, mac := fields[0], fields[2], fields[3]
		if flags == "0x0" || mac == "00:00:00:00:00:00" {
			continue
		}
		table[ip] = discovery.NormalizeHardwareAddress(mac)
	}
	return table, scanner.Err()
}

// ReadARPTable reads the system ARP cache. On systems without /proc it
// returns an empty table.
func ReadARPTable() ARPTable {
	f, err := os.Open(procARPPath)
	if err != nil {
		return ARPTable{}
	}
	defer f.Close()

	table, err := ParseARPTable(f)
	if err != nil {
		return ARPTable{}
	}
	return table
}
