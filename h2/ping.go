package h2

var _ Frame = (*Ping)(nil)

// Ping carries exactly 8 opaque bytes. This draft calls the reply flag
// PONG and puts it at bit 1 (0x2), not bit 0 as RFC 7540's ACK.
type Ping struct {
	pong bool
	data [8]byte
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.pong = false
	p.data = [8]byte{}
}

func (p *Ping) CopyTo(dst *Ping) {
	dst.pong = p.pong
	dst.data = p.data
}

func (p *Ping) Pong() bool         { return p.pong }
func (p *Ping) SetPong(v bool)     { p.pong = v }
func (p *Ping) Data() []byte       { return p.data[:] }
func (p *Ping) SetData(b []byte)   { copy(p.data[:], b) }

func (p *Ping) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 8 {
		return connErrorf(ProtocolError, "PING payload must be 8 bytes, got %d", len(fr.payload))
	}
	p.pong = fr.Flags().Has(FlagPong)
	copy(p.data[:], fr.payload)
	return nil
}

func (p *Ping) Serialize(fr *FrameHeader) {
	if p.pong {
		fr.SetFlags(fr.Flags() | FlagPong)
	}
	fr.payload = append(fr.payload[:0], p.data[:]...)
}
