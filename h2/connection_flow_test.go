package h2

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T) *Connection {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	go drainConn(client)
	return NewConnection(RoleServer, server, Values{}, nil)
}

// drainConn discards whatever the connection under test writes so a
// blocking net.Pipe peer never stalls a WriteTo call made during Serve.
func drainConn(c net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := c.Read(buf); err != nil {
			return
		}
	}
}

func TestHandleDataDecrementsStreamAndConnectionRecvWindows(t *testing.T) {
	c := newTestConnection(t)
	s := newStream(1, DefaultInitialWindowSize)
	c.streams.insert(s)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(make([]byte, 100))
	require.NoError(t, c.handleData(1, d))

	assert.Equal(t, c.connRecvInitial-100, c.connRecvWindow)
	s.mu.Lock()
	assert.Equal(t, s.recvInitial-100, s.recvWindow)
	s.mu.Unlock()
}

func TestHandleDataRejectsOverWindowOnStream(t *testing.T) {
	c := newTestConnection(t)
	s := newStream(1, DefaultInitialWindowSize)
	s.recvWindow = 10
	s.recvInitial = 10
	c.streams.insert(s)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(make([]byte, 11))

	err := c.handleData(1, d)
	require.NoError(t, err) // stream errors are answered with RST_STREAM, not propagated
	assert.Equal(t, StateClosed, s.State())
}

func TestHandleDataRejectsOverWindowOnConnection(t *testing.T) {
	c := newTestConnection(t)
	c.connRecvWindow = 10
	c.connRecvInitial = 10
	s := newStream(1, DefaultInitialWindowSize)
	c.streams.insert(s)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(make([]byte, 11))

	err := c.handleData(1, d)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, FlowControlError, ce.Code)
}

func TestCreateStreamHonorsFlowControlDisabledSetting(t *testing.T) {
	c := newTestConnection(t)

	s := c.CreateStream()
	assert.Equal(t, int64(DefaultInitialWindowSize), s.flow.Window())

	c.peerValues.Apply([]SettingEntry{{ID: SettingsFlowControlOptions, Value: FlowControlDisabled}})

	disabled := c.CreateStream()
	assert.Equal(t, int64(infiniteWindow), disabled.flow.Window())

	// A stream created before the SETTINGS frame keeps its original window.
	assert.Equal(t, int64(DefaultInitialWindowSize), s.flow.Window())
}

func TestPumpOutboundGatedByConnectionWindow(t *testing.T) {
	c := newTestConnection(t)
	c.connFlow = newFlowController(5)

	s1 := newStream(1, maxWindow)
	s1.state = StateOpen
	s1.flow.Enqueue([]byte("0123456789"), false)
	c.streams.insert(s1)

	s2 := newStream(3, maxWindow)
	s2.state = StateOpen
	s2.flow.Enqueue([]byte("abcdefghij"), false)
	c.streams.insert(s2)

	require.NoError(t, c.pumpOutbound())

	assert.Equal(t, int64(0), c.connFlow.Window(), "connection window fully spent on the first stream in ID order")

	s1.mu.Lock()
	assert.True(t, s1.flow.Pending(), "remaining 5 bytes of stream 1 still queued behind the connection window")
	s1.mu.Unlock()

	s2.mu.Lock()
	assert.True(t, s2.flow.Pending(), "stream 2 never got a turn once the connection window was exhausted")
	s2.mu.Unlock()
}

func TestEndMarksLastQueuedFrameEndStreamWhenPending(t *testing.T) {
	c := newTestConnection(t)
	s := c.CreateStream()
	require.NoError(t, s.transition(FrameHeaders, sent, false)) // -> OPEN
	require.NoError(t, c.SendData(s, []byte("hello"), false))

	require.NoError(t, c.End(s))

	assert.Equal(t, StateHalfClosedLocal, s.State())
	s.mu.Lock()
	require.True(t, s.flow.Pending())
	last := s.flow.queue[len(s.flow.queue)-1]
	s.mu.Unlock()
	assert.True(t, last.endStream, "the queued DATA frame must carry END_STREAM rather than leaving it unreachable")
}

func TestEndQueuesEmptyEndStreamFrameWhenNothingPending(t *testing.T) {
	c := newTestConnection(t)
	s := c.CreateStream()
	require.NoError(t, s.transition(FrameHeaders, sent, false)) // -> OPEN

	require.NoError(t, c.End(s))

	assert.Equal(t, StateHalfClosedLocal, s.State())
	s.mu.Lock()
	require.True(t, s.flow.Pending())
	last := s.flow.queue[len(s.flow.queue)-1]
	s.mu.Unlock()
	assert.True(t, last.endStream)
	assert.Empty(t, last.data)
}

func TestHandleDataReplenishesPastHalfThreshold(t *testing.T) {
	c := newTestConnection(t)
	c.connRecvWindow = 100
	c.connRecvInitial = 100
	s := newStream(1, DefaultInitialWindowSize)
	s.state = StateOpen
	s.recvWindow = 100
	s.recvInitial = 100
	c.streams.insert(s)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(make([]byte, 60))
	require.NoError(t, c.handleData(1, d))

	assert.Equal(t, int64(100), c.connRecvWindow, "replenished back to initial after dropping below half")
	s.mu.Lock()
	assert.Equal(t, int64(100), s.recvWindow)
	s.mu.Unlock()

	select {
	case fr := <-c.out:
		wu, ok := fr.Body().(*WindowUpdate)
		require.True(t, ok)
		assert.Equal(t, uint32(60), wu.Increment())
		ReleaseFrameHeader(fr)
	default:
		t.Fatal("expected a queued WINDOW_UPDATE")
	}
	// A second queued update for the stream-scope top-up.
	select {
	case fr := <-c.out:
		wu, ok := fr.Body().(*WindowUpdate)
		require.True(t, ok)
		assert.Equal(t, uint32(60), wu.Increment())
		ReleaseFrameHeader(fr)
	default:
		t.Fatal("expected a second queued WINDOW_UPDATE for the stream")
	}
}
