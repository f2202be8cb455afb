package h2

import "sync"

// StreamState is one of the seven states of §4.3. This widens the
// teacher's 5-state StreamState (which collapses RESERVED_LOCAL/
// RESERVED_REMOTE and HALF_CLOSED_LOCAL/HALF_CLOSED_REMOTE into single
// states) because PUSH_PROMISE needs to know which side reserved a
// stream.
type StreamState int8

const (
	StateIdle StreamState = iota
	StateReservedLocal
	StateReservedRemote
	StateOpen
	StateHalfClosedLocal
	StateHalfClosedRemote
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReservedLocal:
		return "RESERVED_LOCAL"
	case StateReservedRemote:
		return "RESERVED_REMOTE"
	case StateOpen:
		return "OPEN"
	case StateHalfClosedLocal:
		return "HALF_CLOSED_LOCAL"
	case StateHalfClosedRemote:
		return "HALF_CLOSED_REMOTE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// direction records which side produced a transition-triggering frame.
type direction int8

const (
	sent direction = iota
	received
)

// Stream is the per-stream state, flow window, and event sink. A Stream
// is exclusively owned by its Connection; user code interacts with it
// through the non-owning handle returned by CreateStream/the
// incoming-stream notification.
type Stream struct {
	mu       sync.Mutex
	id       uint32
	state    StreamState
	priority uint32

	flow *FlowController // outbound, gated by the peer's advertised window

	// recvWindow/recvInitial track the inbound side: how many more bytes of
	// DATA the peer may still send us on this stream before we must top it
	// back up with a WINDOW_UPDATE, mirroring the teacher's Conn.readStream/
	// updateWindow bookkeeping (§4.5 only spells out the outbound half of
	// this; see DESIGN.md).
	recvWindow  int64
	recvInitial int64

	events StreamEvents
}

// StreamEvents are the callbacks a Connection invokes on a Stream as
// frames arrive, mirroring §6.4's "events: headers, promise, data, end,
// error(code), state".
type StreamEvents struct {
	OnHeaders func(headers map[string][]string, endStream bool)
	OnPromise func(promised *Stream, headers map[string][]string)
	OnData    func(data []byte, endStream bool)
	OnEnd     func()
	OnError   func(code ErrorCode)
	OnState   func(state StreamState)
}

const defaultPriority = 1 << 30

func newStream(id uint32, initialWindow int32) *Stream {
	return &Stream{
		id:          id,
		state:       StateIdle,
		priority:    defaultPriority,
		flow:        newFlowController(initialWindow),
		recvWindow:  int64(DefaultInitialWindowSize),
		recvInitial: int64(DefaultInitialWindowSize),
	}
}

// SetEvents installs the callbacks a Connection invokes as frames
// arrive on s. Safe to call only before the stream starts receiving
// frames (by the caller that just created or was just handed s).
func (s *Stream) SetEvents(ev StreamEvents) {
	s.mu.Lock()
	s.events = ev
	s.mu.Unlock()
}

func (s *Stream) ID() uint32          { return s.id }
func (s *Stream) State() StreamState  { s.mu.Lock(); defer s.mu.Unlock(); return s.state }
func (s *Stream) Priority() uint32    { return s.priority }
func (s *Stream) SetPriority(p uint32) { s.priority = p &^ (1 << 31) }

func (s *Stream) setState(next StreamState) {
	s.mu.Lock()
	s.state = next
	cb := s.events.OnState
	s.mu.Unlock()
	if cb != nil {
		cb(next)
	}
}

// transition applies the table of §4.3 for a non-PUSH_PROMISE frame of
// type t travelling in direction dir, optionally carrying END_STREAM.
// Returns a *StreamError if the transition is a protocol violation on
// the receiving side; panics via ProgrammingError if it is illegal to
// send (a local bug, never put on the wire).
func (s *Stream) transition(t FrameType, dir direction, endStream bool) error {
	cur := s.State()

	illegal := func() error {
		if dir == sent {
			panic(&ProgrammingError{Msg: "illegal " + t.String() + " for stream in state " + cur.String()})
		}
		return streamErrorf(s.id, ProtocolError, "illegal %s received in state %s", t, cur)
	}

	switch cur {
	case StateIdle:
		if t != FrameHeaders {
			return illegal()
		}
		next := StateOpen
		if endStream {
			if dir == sent {
				next = StateHalfClosedLocal
			} else {
				next = StateHalfClosedRemote
			}
		}
		s.setState(next)
		return nil

	case StateReservedLocal:
		switch {
		case dir == sent && t == FrameHeaders:
			s.setState(StateHalfClosedRemote)
			return nil
		case dir == sent && t == FrameResetStream:
			s.setState(StateClosed)
			return nil
		case dir == received && t == FramePriority:
			return nil
		}
		return illegal()

	case StateReservedRemote:
		switch {
		case dir == received && t == FrameHeaders:
			s.setState(StateHalfClosedLocal)
			return nil
		case t == FrameResetStream:
			s.setState(StateClosed)
			return nil
		case dir == sent && t == FramePriority:
			return nil
		}
		return illegal()

	case StateOpen:
		if t == FrameResetStream {
			s.setState(StateClosed)
			return nil
		}
		if endStream {
			if dir == sent {
				s.setState(StateHalfClosedLocal)
			} else {
				s.setState(StateHalfClosedRemote)
			}
		}
		return nil

	case StateHalfClosedLocal:
		if dir == received && (endStream || t == FrameResetStream) {
			s.setState(StateClosed)
			return nil
		}
		if dir == sent && t != FramePriority && t != FrameWindowUpdate {
			return illegal()
		}
		return nil

	case StateHalfClosedRemote:
		if dir == sent && (endStream || t == FrameResetStream) {
			s.setState(StateClosed)
			return nil
		}
		if dir == received && t != FramePriority && t != FrameWindowUpdate {
			return illegal()
		}
		return nil

	case StateClosed:
		switch {
		case dir == sent && t == FrameResetStream:
			return nil
		case dir == received && (t == FrameWindowUpdate || t == FramePriority):
			return nil
		}
		return illegal()
	}

	return illegal()
}

// promisedTransition moves a freshly named promised stream from IDLE to
// RESERVED_LOCAL (we sent the PUSH_PROMISE) or RESERVED_REMOTE (peer
// sent it). A promised stream not in IDLE is a protocol error.
func (s *Stream) promisedTransition(dir direction) error {
	if s.State() != StateIdle {
		return streamErrorf(s.id, ProtocolError, "PUSH_PROMISE names a non-idle stream %d", s.id)
	}
	if dir == sent {
		s.setState(StateReservedLocal)
	} else {
		s.setState(StateReservedRemote)
	}
	return nil
}

// reset transitions the stream to CLOSED, dropping any queued outbound
// frames except an RST_STREAM that is in flight.
func (s *Stream) reset(code ErrorCode) {
	s.setState(StateClosed)
	s.flow.drop()
	cb := s.events.OnError
	if cb != nil {
		cb(code)
	}
}
