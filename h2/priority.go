package h2

import "github.com/vh2proto/engine/h2/wire"

var _ Frame = (*Priority)(nil)

// Priority carries a single u31 priority value. This draft has no
// stream-dependency/weight model; the payload is exactly 4 bytes.
type Priority struct {
	value uint32
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() { p.value = 0 }

func (p *Priority) CopyTo(dst *Priority) { dst.value = p.value }

func (p *Priority) Value() uint32        { return p.value }
func (p *Priority) SetValue(v uint32)    { p.value = v }

func (p *Priority) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 4 {
		return connErrorf(ProtocolError, "PRIORITY frame too short (%d bytes)", len(fr.payload))
	}
	p.value = wire.U31(fr.payload[:4])
	return nil
}

func (p *Priority) Serialize(fr *FrameHeader) {
	fr.payload = growBuf(fr.payload, 4)
	wire.PutU31(fr.payload[:4], p.value)
}
