package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip serializes body via a FrameHeader, then deserializes the bytes
// into a fresh body of the same type and returns it, exercising §8's
// "serialize(frame) then deserialize(B) equals frame" invariant.
func roundTrip(t *testing.T, stream uint32, body Frame) Frame {
	t.Helper()

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(stream)
	fr.SetBody(body)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := fr.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	out, err := ReadFrameFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	defer ReleaseFrameHeader(out)

	assert.Equal(t, stream, out.Stream())
	assert.Equal(t, body.Type(), out.Type())
	return out.Body()
}

func TestDataRoundTrip(t *testing.T) {
	d := AcquireFrame(FrameData).(*Data)
	d.SetData([]byte("12345678"))
	d.SetEndStream(true)

	got := roundTrip(t, 3, d).(*Data)
	assert.Equal(t, []byte("12345678"), got.Data())
	assert.True(t, got.EndStream())
}

func TestHeadersRoundTripWithPriority(t *testing.T) {
	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetPriority(42)
	h.SetEndHeaders(true)
	h.SetEndStream(true)
	h.SetHeaders([]byte{0x82, 0x83})

	got := roundTrip(t, 1, h).(*Headers)
	assert.True(t, got.HasPriority())
	assert.Equal(t, uint32(42), got.Priority())
	assert.True(t, got.EndHeaders())
	assert.True(t, got.EndStream())
	assert.Equal(t, []byte{0x82, 0x83}, got.Headers())
}

func TestHeadersRoundTripWithoutPriority(t *testing.T) {
	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(false)
	h.SetHeaders([]byte{0x01, 0x02, 0x03})

	got := roundTrip(t, 5, h).(*Headers)
	assert.False(t, got.HasPriority())
	assert.False(t, got.EndHeaders())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.Headers())
}

func TestPriorityRoundTrip(t *testing.T) {
	p := AcquireFrame(FramePriority).(*Priority)
	p.SetValue(1 << 29)

	got := roundTrip(t, 7, p).(*Priority)
	assert.Equal(t, uint32(1<<29), got.Value())
}

func TestRstStreamRoundTrip(t *testing.T) {
	r := AcquireFrame(FrameResetStream).(*RstStream)
	r.SetCode(CancelError)

	got := roundTrip(t, 9, r).(*RstStream)
	assert.Equal(t, CancelError, got.Code())
}

func TestSettingsRoundTripDuplicateFirstWins(t *testing.T) {
	s := AcquireFrame(FrameSettings).(*Settings)
	s.Add(SettingsInitialWindowSize, 1000)
	s.Add(SettingsMaxConcurrentStreams, 10)

	got := roundTrip(t, 0, s).(*Settings)
	require.Len(t, got.Entries(), 2)

	var v Values
	v.Apply(got.Entries())
	assert.Equal(t, uint32(1000), v.InitialWindowSize)
	assert.Equal(t, uint32(10), v.MaxConcurrentStreams)

	// Duplicate IDs: first value wins (§4.1).
	var v2 Values
	v2.Apply([]SettingEntry{
		{ID: SettingsInitialWindowSize, Value: 100},
		{ID: SettingsInitialWindowSize, Value: 200},
	})
	assert.Equal(t, uint32(100), v2.InitialWindowSize)
}

func TestSettingsLengthNotMultipleOf8(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(0)
	fr.kind = FrameSettings
	fr.payload = []byte{1, 2, 3}

	s := &Settings{}
	err := s.Deserialize(fr)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ProtocolError, ce.Code)
}

func TestPushPromiseRoundTrip(t *testing.T) {
	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStream(2)
	pp.SetEndHeaders(true)
	pp.SetHeader([]byte{0x84})

	got := roundTrip(t, 1, pp).(*PushPromise)
	assert.Equal(t, uint32(2), got.PromisedStream())
	assert.True(t, got.EndHeaders())
	assert.Equal(t, []byte{0x84}, got.Header())
}

func TestPingRoundTrip(t *testing.T) {
	p := AcquireFrame(FramePing).(*Ping)
	p.SetData([]byte("abcdefgh"))
	p.SetPong(true)

	got := roundTrip(t, 0, p).(*Ping)
	assert.True(t, got.Pong())
	assert.Equal(t, []byte("abcdefgh"), got.Data())
}

func TestPingWrongLengthIsProtocolError(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.payload = []byte("short")

	p := &Ping{}
	err := p.Deserialize(fr)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ProtocolError, ce.Code)
}

func TestGoAwayRoundTrip(t *testing.T) {
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStream(41)
	ga.SetCode(ProtocolError)

	got := roundTrip(t, 0, ga).(*GoAway)
	assert.Equal(t, uint32(41), got.LastStream())
	assert.Equal(t, ProtocolError, got.Code())
}

func TestWindowUpdateRoundTrip(t *testing.T) {
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(65535)

	got := roundTrip(t, 3, wu).(*WindowUpdate)
	assert.Equal(t, uint32(65535), got.Increment())
	assert.False(t, got.EndFlowControl())
}

func TestUnknownFrameTypeIsSilentlyIgnored(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	var hdr [HeaderSize]byte
	payload := []byte("ignored payload")
	hdr[0] = byte(len(payload) >> 8)
	hdr[1] = byte(len(payload))
	hdr[2] = 0x08 // unassigned type code in this draft
	hdr[4] = 0
	_, err := bw.Write(hdr[:])
	require.NoError(t, err)
	_, err = bw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	fr, err := ReadFrameFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	defer ReleaseFrameHeader(fr)
	assert.Nil(t, fr.Body())
}

func TestFrameTooLargeOnWrite(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(3)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(make([]byte, MaxPayload+1))
	fr.SetBody(d)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := fr.WriteTo(bw)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, FrameSizeError, ce.Code)
}
