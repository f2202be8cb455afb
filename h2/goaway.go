package h2

import (
	"fmt"

	"github.com/vh2proto/engine/h2/wire"
)

var _ Frame = (*GoAway)(nil)

// GoAway carries the last processed stream ID and an error code, plus
// optional trailing debug data.
type GoAway struct {
	lastStream uint32
	code       ErrorCode
	data       []byte
}

func (ga *GoAway) Type() FrameType { return FrameGoAway }

func (ga *GoAway) Error() string {
	return fmt.Sprintf("GOAWAY last_stream=%d code=%s data=%q", ga.lastStream, ga.code, ga.data)
}

func (ga *GoAway) Reset() {
	ga.lastStream = 0
	ga.code = 0
	ga.data = ga.data[:0]
}

func (ga *GoAway) CopyTo(dst *GoAway) {
	dst.lastStream = ga.lastStream
	dst.code = ga.code
	dst.data = append(dst.data[:0], ga.data...)
}

func (ga *GoAway) LastStream() uint32     { return ga.lastStream }
func (ga *GoAway) SetLastStream(id uint32) { ga.lastStream = id }
func (ga *GoAway) Code() ErrorCode         { return ga.code }
func (ga *GoAway) SetCode(c ErrorCode)     { ga.code = c }
func (ga *GoAway) Data() []byte            { return ga.data }
func (ga *GoAway) SetData(b []byte)        { ga.data = append(ga.data[:0], b...) }

func (ga *GoAway) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 8 {
		return connErrorf(ProtocolError, "GOAWAY frame too short (%d bytes)", len(fr.payload))
	}
	ga.lastStream = wire.U31(fr.payload[:4])
	ga.code = ErrorCode(wire.Uint32(fr.payload[4:8]))
	if len(fr.payload) > 8 {
		ga.data = append(ga.data[:0], fr.payload[8:]...)
	}
	return nil
}

func (ga *GoAway) Serialize(fr *FrameHeader) {
	fr.payload = growBuf(fr.payload, 8)
	wire.PutU31(fr.payload[:4], ga.lastStream)
	wire.PutUint32(fr.payload[4:8], uint32(ga.code))
	fr.payload = append(fr.payload, ga.data...)
}
