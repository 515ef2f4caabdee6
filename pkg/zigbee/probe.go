package zigbee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	defaultBaudRate = 115200
	readTimeout     = 50 * time.Millisecond
)

// ErrNotCoordinator is returned when the port does not answer the ASH reset.
var ErrNotCoordinator = errors.New("no EZSP coordinator answered")

// Coordinator describes an identified EZSP network co-processor.
type Coordinator struct {
	EUI64           string `json:"eui64"`
	ProtocolVersion uint8  `json:"protocol_version"`
	StackType       uint8  `json:"stack_type"`
	StackVersion    string `json:"stack_version"`
}

// Probe opens path at baud (0 selects 115200) and identifies the attached
// coordinator within ctx's deadline.
func Probe(ctx context.Context, path string, baud int) (Coordinator, error) {
	if baud <= 0 {
		baud = defaultBaudRate
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return Coordinator{}, fmt.Errorf("open serial port %s: %w", path, err)
	}
	defer port.Close()

	// Silicon Labs EZSP dongles require RTS/CTS hardware flow control.
	if err := port.SetRTS(true); err != nil {
		return Coordinator{}, fmt.Errorf("set RTS: %w", err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return Coordinator{}, fmt.Errorf("set read timeout: %w", err)
	}
	_ = port.ResetInputBuffer()

	c, err := Identify(ctx, port)
	if err != nil {
		return Coordinator{}, err
	}
	log.Debug().
		Str("port", path).
		Str("eui64", c.EUI64).
		Uint8("protocol", c.ProtocolVersion).
		Str("stack", c.StackVersion).
		Msg("EZSP coordinator identified")
	return c, nil
}

// Identify resets the NCP on rw, negotiates the EZSP version and reads the
// coordinator's EUI64. rw must return from Read periodically, for example
// through a read timeout, so ctx cancellation is observed.
func Identify(ctx context.Context, rw io.ReadWriter) (Coordinator, error) {
	s := &session{rw: rw, frames: newFrameReader(rw)}

	if err := s.reset(ctx); err != nil {
		return Coordinator{}, err
	}

	params, err := s.command(ctx, ezspVersion, []byte{ezspProtocolVersion})
	if err != nil {
		return Coordinator{}, fmt.Errorf("version negotiation: %w", err)
	}
	// A 1-byte response names the version the NCP supports.
	if len(params) == 1 {
		s.extended = params[0] >= ezspExtendedFromVersion
		params, err = s.command(ctx, ezspVersion, []byte{params[0]})
		if err != nil {
			return Coordinator{}, fmt.Errorf("version negotiation retry: %w", err)
		}
	}
	v, err := parseVersion(params)
	if err != nil {
		return Coordinator{}, err
	}
	s.extended = v.protocol >= ezspExtendedFromVersion

	params, err = s.command(ctx, ezspGetEUI64, nil)
	if err != nil {
		return Coordinator{}, fmt.Errorf("get EUI64: %w", err)
	}
	eui, err := parseEUI64(params)
	if err != nil {
		return Coordinator{}, err
	}

	return Coordinator{
		EUI64:           eui,
		ProtocolVersion: v.protocol,
		StackType:       v.stackType,
		StackVersion:    formatStackVersion(v.stackVersion),
	}, nil
}

// session tracks sequence numbers for one synchronous exchange.
type session struct {
	rw       io.ReadWriter
	frames   *frameReader
	extended bool

	frmNum  uint8 // next DATA frame to send
	ackNum  uint8 // next DATA frame expected from the NCP
	ezspSeq uint8
}

func (s *session) reset(ctx context.Context) error {
	if _, err := s.rw.Write(rstFrame()); err != nil {
		return fmt.Errorf("send RST: %w", err)
	}
	for {
		f, err := s.frames.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ErrNotCoordinator
			}
			return err
		}
		switch f.control {
		case ashFrameRSTACK:
			return nil
		case ashFrameERROR:
			return fmt.Errorf("ncp reported error during reset: % x", f.data)
		}
	}
}

// command sends an EZSP command and returns the parameters of its response.
// Callbacks and frames for other commands are acknowledged and skipped.
func (s *session) command(ctx context.Context, frameID uint16, params []byte) ([]byte, error) {
	payload := ezspCommand(s.ezspSeq, s.extended, frameID, params)
	s.ezspSeq++

	frame := dataFrame(s.frmNum, s.ackNum, payload)
	s.frmNum = (s.frmNum + 1) & 0x07
	if _, err := s.rw.Write(frame); err != nil {
		return nil, fmt.Errorf("write DATA frame: %w", err)
	}

	for {
		f, err := s.frames.next(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case f.control == ashFrameERROR:
			return nil, fmt.Errorf("ncp error frame: % x", f.data)
		case f.control&0xE0 == ashFrameNAK:
			if _, err := s.rw.Write(frame); err != nil {
				return nil, fmt.Errorf("retransmit DATA frame: %w", err)
			}
			continue
		case !f.isData():
			continue
		}

		if f.frmNum() != s.ackNum {
			continue
		}
		s.ackNum = (s.ackNum + 1) & 0x07
		if _, err := s.rw.Write(ackFrame(s.ackNum)); err != nil {
			return nil, fmt.Errorf("write ACK: %w", err)
		}

		id, resp, err := ezspResponse(f.data, s.extended)
		if err != nil {
			return nil, err
		}
		if id == frameID {
			return resp, nil
		}
	}
}
