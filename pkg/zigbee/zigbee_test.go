package zigbee

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNCP answers ASH/EZSP frames written to it. Reads return no data
// instead of blocking, like a serial port with a read timeout.
type fakeNCP struct {
	mu       sync.Mutex
	out      bytes.Buffer
	frames   *frameReader
	in       bytes.Buffer
	silent   bool
	protocol uint8 // version the NCP supports
	eui      [8]byte

	frmNum   uint8
	extended bool
	acks     int
}

func newFakeNCP(protocol uint8) *fakeNCP {
	n := &fakeNCP{protocol: protocol, eui: [8]byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}}
	n.frames = newFrameReader(&n.in)
	return n
}

func (n *fakeNCP) Read(p []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.out.Len() == 0 {
		return 0, nil
	}
	return n.out.Read(p)
}

func (n *fakeNCP) Write(p []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.in.Write(p)
	if n.silent {
		return len(p), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	for {
		f, err := n.frames.next(ctx)
		if err != nil {
			return len(p), nil
		}
		n.handle(f)
	}
}

func (n *fakeNCP) handle(f ashFrame) {
	switch {
	case f.control == ashFrameRST:
		n.out.Write(encodeFrame(ashFrameRSTACK, []byte{0x02, 0x0B}))
	case f.control&0xE0 == ashFrameACK:
		n.acks++
	case f.isData():
		id, params, _ := ezspResponse(f.data, n.extended)
		seq := f.data[0]
		var resp []byte
		switch id {
		case ezspVersion:
			if params[0] != n.protocol {
				resp = []byte{n.protocol}
				break
			}
			resp = []byte{n.protocol, 0x02, 0x10, 0x6A}
		case ezspGetEUI64:
			resp = n.eui[:]
		}
		ackNum := (f.frmNum() + 1) & 0x07
		n.out.Write(dataFrame(n.frmNum, ackNum, n.responseFrame(seq, id, resp)))
		n.frmNum = (n.frmNum + 1) & 0x07
		if id == ezspVersion && n.protocol >= ezspExtendedFromVersion {
			n.extended = true
		}
	}
}

func (n *fakeNCP) responseFrame(seq uint8, id uint16, params []byte) []byte {
	frame := ezspCommand(seq, n.extended, id, params)
	frame[1] = 0x80
	return frame
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte{0x7E, 0x11, 0x00, 0x7D, 0x1A, 0x42}
	encoded := dataFrame(3, 5, payload)
	require.Equal(t, byte(ashFlagByte), encoded[len(encoded)-1])
	assert.NotContains(t, encoded[:len(encoded)-1], byte(ashFlagByte))

	f, err := decodeFrame(encoded[:len(encoded)-1])
	require.NoError(t, err)
	assert.True(t, f.isData())
	assert.Equal(t, uint8(3), f.frmNum())
	assert.Equal(t, payload, f.data)
}

func TestDecodeFrame_Errors(t *testing.T) {
	_, err := decodeFrame([]byte{0x01})
	assert.ErrorIs(t, err, errFrameTooShort)

	encoded := ackFrame(2)
	encoded[0] ^= 0x01
	_, err = decodeFrame(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, errBadCRC)
}

func TestRandomizeIsInvolution(t *testing.T) {
	data := []byte("ezsp payload")
	assert.Equal(t, data, ashRandomize(ashRandomize(data)))
	assert.NotEqual(t, data, ashRandomize(data))
}

func TestFrameReader_SkipsNoise(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x01, 0x02, ashCancelByte})
	stream.Write([]byte{ashXON})
	bad := ackFrame(1)
	bad[0] ^= 0xFF
	stream.Write(bad)
	stream.Write(ackFrame(4))

	fr := newFrameReader(&stream)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := fr.next(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(ashFrameACK|4), f.control)

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, err = fr.next(short)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseHelpers(t *testing.T) {
	eui, err := parseEUI64([]byte{8, 7, 6, 5, 4, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, "01:02:03:04:05:06:07:08", eui)

	_, err = parseEUI64([]byte{1, 2})
	assert.Error(t, err)

	assert.Equal(t, "6.10.1.0", formatStackVersion(0x6A10))

	_, err = parseVersion([]byte{13})
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	ncp := newFakeNCP(ezspProtocolVersion)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Identify(ctx, ncp)
	require.NoError(t, err)
	assert.Equal(t, "01:02:03:04:05:06:07:08", c.EUI64)
	assert.Equal(t, uint8(ezspProtocolVersion), c.ProtocolVersion)
	assert.Equal(t, "6.10.1.0", c.StackVersion)
	assert.Equal(t, 2, ncp.acks)
}

func TestIdentify_OlderNCP(t *testing.T) {
	ncp := newFakeNCP(8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Identify(ctx, ncp)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), c.ProtocolVersion)
	assert.Equal(t, "01:02:03:04:05:06:07:08", c.EUI64)
}

func TestIdentify_NoAnswer(t *testing.T) {
	ncp := newFakeNCP(ezspProtocolVersion)
	ncp.silent = true
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Identify(ctx, ncp)
	assert.ErrorIs(t, err, ErrNotCoordinator)
}
