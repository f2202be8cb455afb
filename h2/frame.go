package h2

import "sync"

// FrameType is the 8-bit frame type code on the wire, numbered per this
// draft rather than RFC 7540: WINDOW_UPDATE is 0x9 and there is no
// CONTINUATION type (0x8 is unassigned).
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameResetStream  FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x9
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameResetStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	default:
		return "UNKNOWN"
	}
}

// FrameFlags is the 8-bit flag set of a frame header. Meaning is
// type-dependent; see the per-type files.
type FrameFlags uint8

const (
	FlagEndStream       FrameFlags = 0x1 // DATA, HEADERS
	FlagReserved        FrameFlags = 0x2 // DATA
	FlagEndHeaders      FrameFlags = 0x4 // HEADERS, PUSH_PROMISE
	FlagPriority        FrameFlags = 0x20
	FlagPong            FrameFlags = 0x2 // PING
	FlagEndFlowControl  FrameFlags = 0x1 // WINDOW_UPDATE
)

func (f FrameFlags) Has(flag FrameFlags) bool { return f&flag == flag }

// Frame is the behavior every per-type payload struct implements. It
// mirrors the teacher's Frame interface (Type/Reset/CopyTo/Deserialize/
// Serialize) but drops padding-related hooks: this draft's wire format has
// no PADDED flag on any frame type.
type Frame interface {
	Type() FrameType
	Reset()
	Deserialize(fr *FrameHeader) error
	Serialize(fr *FrameHeader)
}

var framePools = map[FrameType]*sync.Pool{
	FrameData:         {New: func() interface{} { return &Data{} }},
	FrameHeaders:      {New: func() interface{} { return &Headers{} }},
	FramePriority:     {New: func() interface{} { return &Priority{} }},
	FrameResetStream:  {New: func() interface{} { return &RstStream{} }},
	FrameSettings:     {New: func() interface{} { return &Settings{} }},
	FramePushPromise:  {New: func() interface{} { return &PushPromise{} }},
	FramePing:         {New: func() interface{} { return &Ping{} }},
	FrameGoAway:       {New: func() interface{} { return &GoAway{} }},
	FrameWindowUpdate: {New: func() interface{} { return &WindowUpdate{} }},
}

// AcquireFrame returns a pooled Frame body for t, or nil for an unknown
// type code. Unknown type codes are valid on the wire (§4.1: "MUST be
// silently ignored"); callers consume the declared-length payload and
// drop it without constructing a body.
func AcquireFrame(t FrameType) Frame {
	pool, ok := framePools[t]
	if !ok {
		return nil
	}
	fr := pool.Get().(Frame)
	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its type pool. A nil fr is a no-op, matching
// unknown-type frames that never acquired a body.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}
	pool, ok := framePools[fr.Type()]
	if !ok {
		return
	}
	pool.Put(fr)
}
