package h2

import (
	"bufio"
	"io"
	"sync"

	"github.com/vh2proto/engine/h2/wire"
)

// HeaderSize is the size in bytes of the common frame header: a 16-bit
// length, an 8-bit type, an 8-bit flag set, and a 31-bit stream ID (the
// top bit reserved). This is the draft-04 header, 8 bytes, not RFC 7540's
// 9-byte / 24-bit-length header.
const HeaderSize = 8

// MaxPayload is the largest payload length this draft's 16-bit length
// field can carry.
const MaxPayload = 1<<16 - 1

var frameHeaderPool = sync.Pool{
	New: func() interface{} { return &FrameHeader{} },
}

// FrameHeader is the wire envelope around a Frame body, pooled exactly as
// the teacher pools it. A FrameHeader must not be used from more than one
// goroutine concurrently.
type FrameHeader struct {
	length int
	kind   FrameType
	flags  FrameFlags
	stream uint32

	raw     [HeaderSize]byte
	payload []byte

	body Frame
}

// AcquireFrameHeader returns a reset FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	fr := frameHeaderPool.Get().(*FrameHeader)
	fr.Reset()
	return fr
}

// ReleaseFrameHeader releases fr's body (if any) and returns fr to the
// pool.
func ReleaseFrameHeader(fr *FrameHeader) {
	ReleaseFrame(fr.body)
	fr.body = nil
	frameHeaderPool.Put(fr)
}

// Reset clears fr for reuse.
func (fr *FrameHeader) Reset() {
	fr.length = 0
	fr.kind = 0
	fr.flags = 0
	fr.stream = 0
	fr.body = nil
	fr.payload = fr.payload[:0]
}

func (fr *FrameHeader) Type() FrameType    { return fr.kind }
func (fr *FrameHeader) Flags() FrameFlags  { return fr.flags }
func (fr *FrameHeader) SetFlags(f FrameFlags) { fr.flags = f }
func (fr *FrameHeader) Stream() uint32     { return fr.stream }
func (fr *FrameHeader) SetStream(id uint32) { fr.stream = id }
func (fr *FrameHeader) Len() int           { return fr.length }
func (fr *FrameHeader) Payload() []byte    { return fr.payload }

// Body returns the decoded/attached frame payload.
func (fr *FrameHeader) Body() Frame { return fr.body }

// SetBody attaches fr's body ahead of serialization.
func (fr *FrameHeader) SetBody(body Frame) {
	if body == nil {
		panic("h2: FrameHeader body cannot be nil")
	}
	fr.kind = body.Type()
	fr.body = body
}

func (fr *FrameHeader) parseValues(header []byte) {
	fr.length = int(wire.Uint16(header[:2]))
	fr.kind = FrameType(header[2])
	fr.flags = FrameFlags(header[3])
	fr.stream = wire.U31(header[4:8])
}

func (fr *FrameHeader) buildHeader(dst []byte) {
	wire.PutUint16(dst[:2], uint16(fr.length))
	dst[2] = byte(fr.kind)
	dst[3] = byte(fr.flags)
	wire.PutU31(dst[4:8], fr.stream)
}

// ReadFrameFrom reads one frame from br, acquiring both the header and a
// type-appropriate body from their pools.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	fr := AcquireFrameHeader()
	if _, err := fr.ReadFrom(br); err != nil {
		ReleaseFrameHeader(fr)
		return nil, err
	}
	return fr, nil
}

// ReadFrom reads fr's header and payload from br and deserializes the
// body. Unknown frame type codes are consumed (per the declared length)
// and silently dropped, leaving fr.Body() nil.
func (fr *FrameHeader) ReadFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(HeaderSize)
	if err != nil {
		return 0, err
	}
	if _, err := br.Discard(HeaderSize); err != nil {
		return 0, err
	}

	n := int64(HeaderSize)
	fr.parseValues(header)

	if fr.length > MaxPayload {
		return n, connErrorf(FrameSizeError, "frame length %d exceeds %d", fr.length, MaxPayload)
	}

	if fr.length > 0 {
		fr.payload = growBuf(fr.payload, fr.length)
		read, err := io.ReadFull(br, fr.payload[:fr.length])
		n += int64(read)
		if err != nil {
			return n, err
		}
	}

	fr.body = AcquireFrame(fr.kind)
	if fr.body == nil {
		// Unknown type: payload already consumed above, nothing else to do.
		return n, nil
	}
	return n, fr.body.Deserialize(fr)
}

// WriteTo serializes fr's body and writes the header followed by the
// payload to w.
func (fr *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	fr.body.Serialize(fr)
	fr.length = len(fr.payload)
	if fr.length > MaxPayload {
		return 0, connErrorf(FrameSizeError, "frame length %d exceeds %d", fr.length, MaxPayload)
	}
	fr.buildHeader(fr.raw[:])

	n, err := w.Write(fr.raw[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(fr.payload)
	return int64(n + m), err
}

func growBuf(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	return make([]byte, n)
}
