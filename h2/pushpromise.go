package h2

import "github.com/vh2proto/engine/h2/wire"

var _ Frame = (*PushPromise)(nil)

// PushPromise carries a promised stream ID plus a compressed header
// block fragment. This draft has no padding on PUSH_PROMISE.
type PushPromise struct {
	promised   uint32
	endHeaders bool
	header     []byte
}

func (pp *PushPromise) Type() FrameType { return FramePushPromise }

func (pp *PushPromise) Reset() {
	pp.promised = 0
	pp.endHeaders = false
	pp.header = pp.header[:0]
}

func (pp *PushPromise) CopyTo(dst *PushPromise) {
	dst.promised = pp.promised
	dst.endHeaders = pp.endHeaders
	dst.header = append(dst.header[:0], pp.header...)
}

func (pp *PushPromise) PromisedStream() uint32     { return pp.promised }
func (pp *PushPromise) SetPromisedStream(id uint32) { pp.promised = id }
func (pp *PushPromise) EndHeaders() bool            { return pp.endHeaders }
func (pp *PushPromise) SetEndHeaders(v bool)        { pp.endHeaders = v }
func (pp *PushPromise) Header() []byte              { return pp.header }
func (pp *PushPromise) SetHeader(b []byte)          { pp.header = append(pp.header[:0], b...) }
func (pp *PushPromise) AppendHeader(b []byte)        { pp.header = append(pp.header, b...) }

func (pp *PushPromise) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 4 {
		return connErrorf(ProtocolError, "PUSH_PROMISE frame too short (%d bytes)", len(fr.payload))
	}
	pp.promised = wire.U31(fr.payload[:4])
	pp.header = append(pp.header[:0], fr.payload[4:]...)
	pp.endHeaders = fr.Flags().Has(FlagEndHeaders)
	return nil
}

func (pp *PushPromise) Serialize(fr *FrameHeader) {
	if pp.endHeaders {
		fr.SetFlags(fr.Flags() | FlagEndHeaders)
	}
	fr.payload = growBuf(fr.payload, 4)
	wire.PutU31(fr.payload[:4], pp.promised)
	fr.payload = append(fr.payload, pp.header...)
}
