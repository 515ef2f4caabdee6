package zigbee

import (
	"encoding/binary"
	"fmt"
)

// EZSP frame IDs
const (
	ezspVersion  uint16 = 0x0000
	ezspGetEUI64 uint16 = 0x0026

	// Highest protocol version requested. An older NCP answers with the
	// version it supports.
	ezspProtocolVersion = 13

	// Protocol versions from 8 on use the extended frame header.
	ezspExtendedFromVersion = 8
)

// ezspCommand builds an EZSP command frame. The legacy header is
// seq, frame control, frame id; the extended header widens frame control
// and frame id to two bytes each.
func ezspCommand(seq uint8, extended bool, frameID uint16, params []byte) []byte {
	if extended {
		frame := make([]byte, 0, 5+len(params))
		frame = append(frame, seq, 0x00, 0x01)
		frame = binary.LittleEndian.AppendUint16(frame, frameID)
		return append(frame, params...)
	}
	frame := make([]byte, 0, 3+len(params))
	frame = append(frame, seq, 0x00, byte(frameID))
	return append(frame, params...)
}

// ezspResponse splits a response frame into its frame id and parameters.
func ezspResponse(data []byte, extended bool) (uint16, []byte, error) {
	if extended {
		if len(data) < 5 {
			return 0, nil, fmt.Errorf("ezsp frame too short: %d bytes", len(data))
		}
		return binary.LittleEndian.Uint16(data[3:5]), data[5:], nil
	}
	if len(data) < 3 {
		return 0, nil, fmt.Errorf("ezsp frame too short: %d bytes", len(data))
	}
	return uint16(data[2]), data[3:], nil
}

// versionInfo is the payload of a version response.
type versionInfo struct {
	protocol     uint8
	stackType    uint8
	stackVersion uint16
}

func parseVersion(params []byte) (versionInfo, error) {
	if len(params) < 4 {
		return versionInfo{}, fmt.Errorf("version response too short: %d bytes", len(params))
	}
	return versionInfo{
		protocol:     params[0],
		stackType:    params[1],
		stackVersion: binary.LittleEndian.Uint16(params[2:4]),
	}, nil
}

// formatStackVersion renders the packed EmberZNet version, one nibble per
// component.
func formatStackVersion(v uint16) string {
	return fmt.Sprintf("%d.%d.%d.%d", v>>12&0x0F, v>>8&0x0F, v>>4&0x0F, v&0x0F)
}

// parseEUI64 decodes the little-endian IEEE address of a getEui64 response.
func parseEUI64(params []byte) (string, error) {
	if len(params) < 8 {
		return "", fmt.Errorf("EUI64 response too short: %d bytes", len(params))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		params[7], params[6], params[5], params[4], params[3], params[2], params[1], params[0]), nil
}
