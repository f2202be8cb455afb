package h2

import (
	"errors"
	"fmt"
)

// ErrorCode is a 32-bit HTTP/2 error code, as carried by RST_STREAM and
// GOAWAY frames.
type ErrorCode uint32

// Error codes defined for this draft. There is deliberately no code 4:
// this draft predates SETTINGS_TIMEOUT.
const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStreamError ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
)

var errorStrings = map[ErrorCode]string{
	NoError:            "no error",
	ProtocolError:      "protocol error",
	InternalError:      "internal error",
	FlowControlError:   "flow control error",
	StreamClosedError:  "stream closed",
	FrameSizeError:     "frame too large",
	RefusedStreamError: "refused stream",
	CancelError:        "canceled",
	CompressionError:   "compression error",
}

// String renders the error code the way it appears in GOAWAY/RST_STREAM
// debugging output.
func (c ErrorCode) String() string {
	if s, ok := errorStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %#x", uint32(c))
}

// ConnError is a connection-fatal error: the engine answers it with GOAWAY
// and tears the pipeline down.
type ConnError struct {
	Code ErrorCode
	Msg  string
}

func (e *ConnError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("h2: connection error: %s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("h2: connection error: %s", e.Code)
}

// Is lets errors.Is(err, SomeCode) work against a *ConnError by comparing
// codes, mirroring the teacher's WriteError.Is pattern.
func (e *ConnError) Is(target error) bool {
	var other *ConnError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

func connErrorf(code ErrorCode, format string, args ...interface{}) *ConnError {
	return &ConnError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// StreamError is scoped to a single stream: the engine answers it with
// RST_STREAM and drops the stream, leaving the rest of the connection
// running.
type StreamError struct {
	Stream uint32
	Code   ErrorCode
	Msg    string
}

func (e *StreamError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("h2: stream %d error: %s: %s", e.Stream, e.Code, e.Msg)
	}
	return fmt.Sprintf("h2: stream %d error: %s", e.Stream, e.Code)
}

func (e *StreamError) Is(target error) bool {
	var other *StreamError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

func streamErrorf(stream uint32, code ErrorCode, format string, args ...interface{}) *StreamError {
	return &StreamError{Stream: stream, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ProgrammingError is raised when the local side asks for a frame that is
// illegal for the stream's current state. Per the state machine design,
// this is fatal to the caller's goroutine, not to the connection: no frame
// is ever put on the wire for it.
type ProgrammingError struct {
	Msg string
}

func (e *ProgrammingError) Error() string { return "h2: programming error: " + e.Msg }

var (
	// ErrBadPreface is returned when the leading 24 bytes read from a
	// plain-TCP client connection do not match the expected preface.
	ErrBadPreface = errors.New("h2: bad connection preface")
	// ErrClosed names use of a stream or connection that has already
	// reached CLOSED. No function in this package returns it: sending on
	// a CLOSED stream is rejected by the stream state machine instead.
	ErrClosed = errors.New("h2: use of closed stream or connection")
)
