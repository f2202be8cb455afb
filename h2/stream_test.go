package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIdleToOpenOnHeaders(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, false))
	assert.Equal(t, StateOpen, s.State())
}

func TestStreamIdleToHalfClosedRemoteOnHeadersEndStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, true))
	assert.Equal(t, StateHalfClosedRemote, s.State())
}

func TestStreamIdleToHalfClosedLocalOnSentHeadersEndStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, sent, true))
	assert.Equal(t, StateHalfClosedLocal, s.State())
}

func TestStreamIdleRejectsAnythingButHeaders(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	err := s.transition(FrameData, received, false)
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProtocolError, se.Code)
	assert.Equal(t, StateIdle, s.State())
}

func TestStreamOpenClosesOnRstStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, false))
	require.NoError(t, s.transition(FrameResetStream, received, false))
	assert.Equal(t, StateClosed, s.State())
}

func TestStreamHalfClosedLocalRejectsSentNonException(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, sent, true)) // -> HALF_CLOSED_LOCAL
	assert.Panics(t, func() {
		s.transition(FrameHeaders, sent, false)
	})
}

func TestStreamHalfClosedLocalAllowsSentPriorityAndWindowUpdate(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, sent, true))
	assert.NoError(t, s.transition(FramePriority, sent, false))
	assert.NoError(t, s.transition(FrameWindowUpdate, sent, false))
	assert.Equal(t, StateHalfClosedLocal, s.State())
}

func TestStreamHalfClosedLocalClosesOnReceivedEndStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, sent, true))
	require.NoError(t, s.transition(FrameData, received, true))
	assert.Equal(t, StateClosed, s.State())
}

func TestStreamClosedIgnoresWindowUpdateAndPriority(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, false))
	require.NoError(t, s.transition(FrameResetStream, received, false))
	require.Equal(t, StateClosed, s.State())

	assert.NoError(t, s.transition(FrameWindowUpdate, received, false))
	assert.NoError(t, s.transition(FramePriority, received, false))
	assert.Equal(t, StateClosed, s.State())
}

func TestStreamClosedRejectsOtherReceivedFrames(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, false))
	require.NoError(t, s.transition(FrameResetStream, received, false))

	err := s.transition(FrameData, received, false)
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
}

func TestReservedLocalToHalfClosedRemoteOnSentHeaders(t *testing.T) {
	s := newStream(2, DefaultInitialWindowSize)
	require.NoError(t, s.promisedTransition(sent))
	assert.Equal(t, StateReservedLocal, s.State())

	require.NoError(t, s.transition(FrameHeaders, sent, false))
	assert.Equal(t, StateHalfClosedRemote, s.State())
}

func TestReservedRemoteToHalfClosedLocalOnReceivedHeaders(t *testing.T) {
	s := newStream(2, DefaultInitialWindowSize)
	require.NoError(t, s.promisedTransition(received))
	assert.Equal(t, StateReservedRemote, s.State())

	require.NoError(t, s.transition(FrameHeaders, received, false))
	assert.Equal(t, StateHalfClosedLocal, s.State())
}

func TestPromisedTransitionRejectsNonIdleStream(t *testing.T) {
	s := newStream(2, DefaultInitialWindowSize)
	require.NoError(t, s.transition(FrameHeaders, received, false)) // -> OPEN
	err := s.promisedTransition(received)
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProtocolError, se.Code)
}

func TestStreamResetDropsQueuedFrames(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize)
	s.flow.Enqueue([]byte("queued"), false)
	require.True(t, s.flow.Pending())

	var gotCode ErrorCode
	s.SetEvents(StreamEvents{OnError: func(c ErrorCode) { gotCode = c }})
	s.reset(CancelError)

	assert.Equal(t, StateClosed, s.State())
	assert.False(t, s.flow.Pending())
	assert.Equal(t, CancelError, gotCode)
}
