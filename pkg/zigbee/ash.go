// Package zigbee identifies Silicon Labs EZSP coordinators on serial ports.
// It speaks just enough ASH and EZSP to reset the NCP, negotiate the
// protocol version and read the coordinator's IEEE address.
package zigbee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ASH protocol constants
const (
	ashFlagByte   = 0x7E
	ashEscapeByte = 0x7D
	ashXON        = 0x11
	ashXOFF       = 0x13
	ashFlipBit    = 0x20
	ashCancelByte = 0x1A
	ashSubstitute = 0x18

	// Frame types (encoded in control byte)
	ashFrameData   = 0x00 // bit 7 = 0
	ashFrameACK    = 0x80 // 0b10000xxx
	ashFrameNAK    = 0xA0 // 0b10100xxx
	ashFrameRST    = 0xC0
	ashFrameRSTACK = 0xC1
	ashFrameERROR  = 0xC2

	ashMaxFrameLen = 256
)

var (
	errFrameTooShort = errors.New("ash frame too short")
	errBadCRC        = errors.New("ash crc mismatch")
)

// ashFrame is a received frame after unstuffing and CRC removal.
type ashFrame struct {
	control byte
	data    []byte
}

func (f ashFrame) isData() bool { return f.control&0x80 == ashFrameData }

func (f ashFrame) frmNum() uint8 { return (f.control >> 4) & 0x07 }

// rstFrame returns a cancel byte followed by an RST frame.
func rstFrame() []byte {
	return append([]byte{ashCancelByte}, encodeFrame(ashFrameRST, nil)...)
}

// dataFrame wraps an EZSP payload. The payload is randomized on the wire.
func dataFrame(frmNum, ackNum uint8, payload []byte) []byte {
	control := (frmNum&0x07)<<4 | ackNum&0x07
	return encodeFrame(control, ashRandomize(payload))
}

func ackFrame(ackNum uint8) []byte {
	return encodeFrame(ashFrameACK|ackNum&0x07, nil)
}

// encodeFrame appends the CRC, stuffs reserved bytes and terminates the
// frame with a flag byte.
func encodeFrame(control byte, data []byte) []byte {
	raw := make([]byte, 0, len(data)+3)
	raw = append(raw, control)
	raw = append(raw, data...)
	crc := crcCCITT(raw)
	raw = append(raw, byte(crc>>8), byte(crc&0xFF))

	frame := ashStuff(raw)
	return append(frame, ashFlagByte)
}

// decodeFrame reverses encodeFrame for a frame without its flag byte. DATA
// payloads are de-randomized.
func decodeFrame(stuffed []byte) (ashFrame, error) {
	raw := ashUnstuff(stuffed)
	if len(raw) < 3 {
		return ashFrame{}, errFrameTooShort
	}

	body := raw[:len(raw)-2]
	received := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	if received != crcCCITT(body) {
		return ashFrame{}, errBadCRC
	}

	f := ashFrame{control: body[0], data: append([]byte(nil), body[1:]...)}
	if f.isData() {
		f.data = ashRandomize(f.data)
	}
	return f, nil
}

// frameReader splits a serial byte stream into ASH frames.
type frameReader struct {
	r       io.Reader
	buf     []byte
	pending []byte // read but not yet framed
	frame   []byte // bytes of the frame being assembled
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r, buf: make([]byte, 64)}
}

// next returns the next frame with a valid CRC. Reads that return no data
// are retried until ctx is done, which suits ports with a read timeout.
func (fr *frameReader) next(ctx context.Context) (ashFrame, error) {
	for {
		for len(fr.pending) > 0 {
			b := fr.pending[0]
			fr.pending = fr.pending[1:]

			switch b {
			case ashCancelByte, ashSubstitute:
				fr.frame = fr.frame[:0]
			case ashXON, ashXOFF:
			case ashFlagByte:
				if len(fr.frame) == 0 {
					continue
				}
				f, err := decodeFrame(fr.frame)
				fr.frame = fr.frame[:0]
				if err != nil {
					continue
				}
				return f, nil
			default:
				fr.frame = append(fr.frame, b)
				if len(fr.frame) > ashMaxFrameLen {
					fr.frame = fr.frame[:0]
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return ashFrame{}, fmt.Errorf("waiting for ash frame: %w", err)
		}
		if err := fr.fill(); err != nil {
			return ashFrame{}, err
		}
	}
}

func (fr *frameReader) fill() error {
	n, err := fr.r.Read(fr.buf)
	if n > 0 {
		fr.pending = append(fr.pending, fr.buf[:n]...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read serial: %w", err)
	}
	if n == 0 {
		time.Sleep(time.Millisecond)
	}
	return nil
}

// ashStuff performs ASH byte stuffing.
func ashStuff(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == ashFlagByte || b == ashEscapeByte || b == ashXON || b == ashXOFF || b == ashSubstitute || b == ashCancelByte {
			out = append(out, ashEscapeByte, b^ashFlipBit)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// ashUnstuff reverses ASH byte stuffing.
func ashUnstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		if escaped {
			out = append(out, b^ashFlipBit)
			escaped = false
		} else if b == ashEscapeByte {
			escaped = true
		} else {
			out = append(out, b)
		}
	}
	return out
}

// ashRandomize XORs data with the ASH pseudo-random sequence. Applying it
// twice restores the input.
func ashRandomize(data []byte) []byte {
	out := make([]byte, len(data))
	rand := byte(0x42)
	for i, b := range data {
		out[i] = b ^ rand
		if rand&0x01 == 0 {
			rand >>= 1
		} else {
			rand = (rand >> 1) ^ 0xB8
		}
	}
	return out
}

// crcCCITT computes CRC-CCITT (0xFFFF initial, poly 0x1021).
func crcCCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
