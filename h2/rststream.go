package h2

import "github.com/vh2proto/engine/h2/wire"

var _ Frame = (*RstStream)(nil)

// RstStream carries a single 4-byte error code.
type RstStream struct {
	code ErrorCode
}

func (rst *RstStream) Type() FrameType { return FrameResetStream }

func (rst *RstStream) Reset() { rst.code = 0 }

func (rst *RstStream) CopyTo(dst *RstStream) { dst.code = rst.code }

func (rst *RstStream) Code() ErrorCode     { return rst.code }
func (rst *RstStream) SetCode(c ErrorCode) { rst.code = c }

func (rst *RstStream) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 4 {
		return connErrorf(ProtocolError, "RST_STREAM frame too short (%d bytes)", len(fr.payload))
	}
	rst.code = ErrorCode(wire.Uint32(fr.payload[:4]))
	return nil
}

func (rst *RstStream) Serialize(fr *FrameHeader) {
	fr.payload = growBuf(fr.payload, 4)
	wire.PutUint32(fr.payload[:4], uint32(rst.code))
}
