package h2

import "github.com/vh2proto/engine/h2/wire"

var _ Frame = (*Headers)(nil)

// Headers carries a compressed header block, one chunk of which may be
// this frame alone or one of a series terminated by END_HEADERS. When
// PRIORITY is set, the first 4 bytes of the payload are a single u31
// priority value (no stream-dependency/weight pair, unlike RFC 7540).
type Headers struct {
	hasPriority bool
	priority    uint32
	endStream   bool
	endHeaders  bool
	rawHeaders  []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.hasPriority = false
	h.priority = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) CopyTo(dst *Headers) {
	dst.hasPriority = h.hasPriority
	dst.priority = h.priority
	dst.endStream = h.endStream
	dst.endHeaders = h.endHeaders
	dst.rawHeaders = append(dst.rawHeaders[:0], h.rawHeaders...)
}

func (h *Headers) Headers() []byte         { return h.rawHeaders }
func (h *Headers) SetHeaders(b []byte)     { h.rawHeaders = append(h.rawHeaders[:0], b...) }
func (h *Headers) AppendRawHeaders(b []byte) { h.rawHeaders = append(h.rawHeaders, b...) }

func (h *Headers) EndStream() bool         { return h.endStream }
func (h *Headers) SetEndStream(v bool)     { h.endStream = v }
func (h *Headers) EndHeaders() bool        { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool)    { h.endHeaders = v }
func (h *Headers) HasPriority() bool       { return h.hasPriority }
func (h *Headers) Priority() uint32        { return h.priority }
func (h *Headers) SetPriority(p uint32) {
	h.hasPriority = true
	h.priority = p
}

func (h *Headers) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPriority) {
		if len(payload) < 4 {
			return connErrorf(ProtocolError, "HEADERS priority field truncated")
		}
		h.hasPriority = true
		h.priority = wire.U31(payload[:4])
		payload = payload[4:]
	}

	h.endStream = fr.Flags().Has(FlagEndStream)
	h.endHeaders = fr.Flags().Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)

	return nil
}

func (h *Headers) Serialize(fr *FrameHeader) {
	if h.endStream {
		fr.SetFlags(fr.Flags() | FlagEndStream)
	}
	if h.endHeaders {
		fr.SetFlags(fr.Flags() | FlagEndHeaders)
	}

	fr.payload = fr.payload[:0]
	if h.hasPriority {
		fr.SetFlags(fr.Flags() | FlagPriority)
		fr.payload = growBuf(fr.payload, 4)
		wire.PutU31(fr.payload[:4], h.priority)
	}
	fr.payload = append(fr.payload, h.rawHeaders...)
}
