package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStreamRefusedAfterLocalGoAway(t *testing.T) {
	c := newTestConnection(t)
	c.GoAway(0, NoError)

	assert.Nil(t, c.CreateStream())
}

func TestStreamOrRefusesNewRemoteStreamAfterLocalGoAway(t *testing.T) {
	c := newTestConnection(t)
	c.GoAway(0, NoError)

	assert.Nil(t, c.streamOr(3, true))
}

func TestStreamOrRefusesNewStreamAboveLastPeerGoAway(t *testing.T) {
	c := newTestConnection(t)
	require.NoError(t, c.handleGoAway(goAwayFrame(5, NoError)))

	assert.Nil(t, c.streamOr(7, true))

	s := c.streamOr(5, true)
	require.NotNil(t, s, "streams at or below last_stream are still serviced")
}

func TestHandleHeadersFrameRefusedAfterGoAway(t *testing.T) {
	c := newTestConnection(t)
	c.GoAway(0, NoError)

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(false)

	err := c.handleHeadersFrame(9, h)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, RefusedStreamError, ce.Code)
}

// goAwayFrame builds a GoAway frame body for direct handler calls,
// mirroring how dispatchControl would decode one off the wire.
func goAwayFrame(lastStream uint32, code ErrorCode) *GoAway {
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStream(lastStream)
	ga.SetCode(code)
	return ga
}
