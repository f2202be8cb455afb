package h2

import (
	"errors"
	"io"
	"time"

	"github.com/vh2proto/engine/h2/hpack"
)

// Serve runs the connection's single cooperative pump until the peer
// closes the connection, a connection-fatal error occurs, or Close is
// called. It is grounded on the teacher's serverConn.go/conn.go
// goroutine pair (one reader, one writer) funneled through a single
// logical task, matching this draft's single-threaded execution model
// of §5: all state mutation happens on the goroutine that calls Serve,
// and every suspension point is a channel receive rather than a lock
// wait.
func (c *Connection) Serve() error {
	inbound := make(chan *FrameHeader, 16)
	readErr := make(chan error, 1)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			fr, err := ReadFrameFrom(c.br)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case inbound <- fr:
			case <-c.done:
				ReleaseFrameHeader(fr)
				return
			}
		}
	}()

	sawFirstFrame := false

	for {
		select {
		case fr := <-inbound:
			first := !sawFirstFrame
			sawFirstFrame = true
			err := c.dispatch(fr, first)
			ReleaseFrameHeader(fr)
			if err != nil {
				return c.fail(err)
			}

		case fn := <-c.control:
			fn()

		case fr := <-c.out:
			if _, err := fr.WriteTo(c.bw); err != nil {
				ReleaseFrameHeader(fr)
				return err
			}
			if err := c.bw.Flush(); err != nil {
				ReleaseFrameHeader(fr)
				return err
			}
			ReleaseFrameHeader(fr)

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return c.fail(err)

		case <-ticker.C:
			c.Ping([8]byte{}, true)

		case <-c.done:
			return nil
		}

		if err := c.pumpOutbound(); err != nil {
			return c.fail(err)
		}
	}
}

// fail answers a connection-fatal error with GOAWAY (when it carries an
// ErrorCode) and tears the pipeline down, per §7.
func (c *Connection) fail(err error) error {
	var ce *ConnError
	if errors.As(err, &ce) {
		fr := AcquireFrameHeader()
		ga := AcquireFrame(FrameGoAway).(*GoAway)
		ga.SetLastStream(c.highestStream())
		ga.SetCode(ce.Code)
		fr.SetBody(ga)
		fr.WriteTo(c.bw)
		c.bw.Flush()
	}
	c.Close()
	return err
}

func (c *Connection) highestStream() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.streams.all()
	if len(list) == 0 {
		return 0
	}
	return list[len(list)-1].id
}

// dispatch routes one inbound frame to its connection- or stream-scope
// handler. first reports whether this is the very first frame seen on
// the connection, enforcing §4.4's "first frame on either side MUST be
// SETTINGS on stream 0" rule.
func (c *Connection) dispatch(fr *FrameHeader, first bool) error {
	if first && !(fr.Stream() == 0 && fr.Type() == FrameSettings) {
		return connErrorf(ProtocolError, "first frame must be SETTINGS on stream 0, got %s on stream %d", fr.Type(), fr.Stream())
	}

	if fr.Body() == nil {
		// Unknown frame type: already consumed, silently ignored per §4.1.
		return nil
	}

	if fr.Stream() == 0 {
		return c.dispatchControl(fr)
	}
	return c.dispatchStream(fr)
}

func (c *Connection) dispatchControl(fr *FrameHeader) error {
	switch body := fr.Body().(type) {
	case *Settings:
		return c.handleSettings(body)
	case *Ping:
		return c.handlePing(body)
	case *GoAway:
		return c.handleGoAway(body)
	case *WindowUpdate:
		return c.connFlow.ApplyUpdate(body.Increment(), body.EndFlowControl())
	default:
		return connErrorf(ProtocolError, "%s frame not valid on stream 0", fr.Type())
	}
}

func (c *Connection) handleSettings(s *Settings) error {
	c.mu.Lock()
	prevInitial := c.peerValues.InitialWindowSize
	c.peerValues.Apply(s.Entries())
	delta := int64(c.peerValues.InitialWindowSize) - int64(prevInitial)
	streams := append([]*Stream(nil), c.streams.all()...)
	c.mu.Unlock()

	if delta != 0 {
		for _, st := range streams {
			st.mu.Lock()
			st.flow.window += delta
			st.mu.Unlock()
		}
	}

	return c.writeSettings()
}

func (c *Connection) handlePing(p *Ping) error {
	if p.Pong() {
		c.mu.Lock()
		var key [8]byte
		copy(key[:], p.Data())
		ch, ok := c.pings[key]
		if ok {
			delete(c.pings, key)
		}
		c.mu.Unlock()
		if ok {
			ch <- nil
		} else {
			c.log.Printf("h2: unsolicited PONG, discarding")
		}
		return nil
	}

	fr := AcquireFrameHeader()
	reply := AcquireFrame(FramePing).(*Ping)
	reply.SetPong(true)
	reply.SetData(p.Data())
	fr.SetBody(reply)
	c.enqueueControl(fr)
	return nil
}

func (c *Connection) handleGoAway(ga *GoAway) error {
	c.mu.Lock()
	c.closingPeer = true
	c.lastPeerGOAway = ga.LastStream()
	c.mu.Unlock()

	if c.events.OnGoAway != nil {
		c.events.OnGoAway(ga.LastStream(), ga.Code())
	}
	return nil
}

func (c *Connection) dispatchStream(fr *FrameHeader) error {
	switch body := fr.Body().(type) {
	case *Headers:
		return c.handleHeadersFrame(fr.Stream(), body)
	case *PushPromise:
		return c.handlePushPromiseFrame(fr.Stream(), body)
	case *Data:
		return c.handleData(fr.Stream(), body)
	case *Priority:
		return c.handlePriority(fr.Stream(), body)
	case *RstStream:
		return c.handleRstStream(fr.Stream(), body)
	case *WindowUpdate:
		return c.handleStreamWindowUpdate(fr.Stream(), body)
	default:
		return connErrorf(ProtocolError, "%s frame not valid on a stream", fr.Type())
	}
}

func (c *Connection) handleHeadersFrame(id uint32, h *Headers) error {
	s := c.streamOr(id, true)
	if s == nil {
		return connErrorf(RefusedStreamError, "HEADERS opening stream %d refused after GOAWAY", id)
	}
	c.mu.Lock()
	isNew := s.State() == StateIdle && c.pendingSeries[id] == nil
	c.mu.Unlock()
	if isNew && c.events.OnStream != nil {
		c.events.OnStream(s)
	}

	if h.HasPriority() {
		s.SetPriority(h.Priority())
	}

	series, ok := c.pendingSeries[id]
	if !ok {
		series = &headerSeries{frameType: FrameHeaders, stream: id}
		c.pendingSeries[id] = series
	}
	series.endStream = h.EndStream()
	series.buf = append(series.buf, h.Headers()...)

	if !h.EndHeaders() {
		return nil
	}
	delete(c.pendingSeries, id)

	fields, err := c.decoder.Decode(series.buf)
	if err != nil {
		return connErrorf(CompressionError, "%v", err)
	}

	if err := s.transition(FrameHeaders, received, series.endStream); err != nil {
		return c.resetOnStreamError(s, err)
	}

	if s.events.OnHeaders != nil {
		s.events.OnHeaders(foldHeaders(fields), series.endStream)
	}
	if series.endStream && s.events.OnEnd != nil {
		s.events.OnEnd()
	}
	return nil
}

func (c *Connection) handlePushPromiseFrame(id uint32, pp *PushPromise) error {
	series, ok := c.pendingSeries[id]
	if !ok {
		series = &headerSeries{frameType: FramePushPromise, stream: id, promised: pp.PromisedStream()}
		c.pendingSeries[id] = series
	}
	series.buf = append(series.buf, pp.Header()...)

	if !pp.EndHeaders() {
		return nil
	}
	delete(c.pendingSeries, id)

	parent := c.streamOr(id, false)
	if parent == nil {
		return connErrorf(ProtocolError, "PUSH_PROMISE on unknown stream %d", id)
	}

	promised := c.streamOr(series.promised, true)
	if promised == nil {
		return connErrorf(RefusedStreamError, "PUSH_PROMISE naming stream %d refused after GOAWAY", series.promised)
	}
	if err := promised.promisedTransition(received); err != nil {
		return err
	}

	fields, err := c.decoder.Decode(series.buf)
	if err != nil {
		return connErrorf(CompressionError, "%v", err)
	}

	if parent.events.OnPromise != nil {
		parent.events.OnPromise(promised, foldHeaders(fields))
	}
	return nil
}

// handleData accounts inbound DATA against the connection's and stream's
// receive windows (connRecvWindow/Stream.recvWindow), which are distinct
// from connFlow/Stream.flow: those two gate what WE are allowed to send,
// not what the peer is allowed to send us. Grounded on the teacher's
// Conn.readStream/updateWindow pair, which keeps the same split between
// c.serverWindow (outbound) and c.currentWindow (inbound).
func (c *Connection) handleData(id uint32, d *Data) error {
	s := c.streamOr(id, false)
	if s == nil {
		return connErrorf(ProtocolError, "DATA on unknown stream %d", id)
	}

	n := int64(d.Len())

	c.mu.Lock()
	c.connRecvWindow -= n
	connExhausted := c.connRecvWindow < 0
	c.mu.Unlock()
	if connExhausted {
		return connErrorf(FlowControlError, "peer sent more DATA than the connection receive window allows")
	}

	s.mu.Lock()
	s.recvWindow -= n
	streamExhausted := s.recvWindow < 0
	s.mu.Unlock()
	if streamExhausted {
		return c.resetOnStreamError(s, streamErrorf(s.id, FlowControlError, "peer sent more DATA than stream %d's receive window allows", s.id))
	}

	if err := s.transition(FrameData, received, d.EndStream()); err != nil {
		return c.resetOnStreamError(s, err)
	}

	if s.events.OnData != nil {
		s.events.OnData(d.Data(), d.EndStream())
	}
	if d.EndStream() && s.events.OnEnd != nil {
		s.events.OnEnd()
	}

	c.replenishReceiveWindows(s)
	return nil
}

// replenishReceiveWindows tops connRecvWindow and s.recvWindow back up to
// their initial size, and emits the corresponding WINDOW_UPDATE frames,
// once either has fallen past half of its initial value. Mirrors the
// teacher's half-threshold top-up (updateWindow only fires once the
// window has drained below maxWindow/2) rather than acking every byte.
func (c *Connection) replenishReceiveWindows(s *Stream) {
	c.mu.Lock()
	var connDelta int64
	if c.connRecvWindow < c.connRecvInitial/2 {
		connDelta = c.connRecvInitial - c.connRecvWindow
		c.connRecvWindow = c.connRecvInitial
	}
	c.mu.Unlock()
	if connDelta > 0 {
		c.sendWindowUpdate(0, uint32(connDelta))
	}

	s.mu.Lock()
	var streamDelta int64
	if s.state != StateClosed && s.recvWindow < s.recvInitial/2 {
		streamDelta = s.recvInitial - s.recvWindow
		s.recvWindow = s.recvInitial
	}
	s.mu.Unlock()
	if streamDelta > 0 {
		c.sendWindowUpdate(s.id, uint32(streamDelta))
	}
}

func (c *Connection) sendWindowUpdate(streamID uint32, increment uint32) {
	fr := AcquireFrameHeader()
	fr.SetStream(streamID)
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(increment)
	fr.SetBody(wu)
	c.enqueueControl(fr)
}

func (c *Connection) handlePriority(id uint32, p *Priority) error {
	s := c.streamOr(id, true)
	if s == nil {
		return connErrorf(RefusedStreamError, "PRIORITY opening stream %d refused after GOAWAY", id)
	}
	if err := s.transition(FramePriority, received, false); err != nil {
		return c.resetOnStreamError(s, err)
	}
	s.SetPriority(p.Value())
	return nil
}

func (c *Connection) handleRstStream(id uint32, rst *RstStream) error {
	s := c.streamOr(id, false)
	if s == nil {
		return connErrorf(ProtocolError, "RST_STREAM on unknown stream %d", id)
	}
	if err := s.transition(FrameResetStream, received, false); err != nil {
		return c.resetOnStreamError(s, err)
	}
	s.reset(rst.Code())
	return nil
}

func (c *Connection) handleStreamWindowUpdate(id uint32, wu *WindowUpdate) error {
	s := c.streamOr(id, true)
	if s == nil {
		return connErrorf(RefusedStreamError, "WINDOW_UPDATE opening stream %d refused after GOAWAY", id)
	}
	if err := s.transition(FrameWindowUpdate, received, false); err != nil {
		return c.resetOnStreamError(s, err)
	}
	s.mu.Lock()
	err := s.flow.ApplyUpdate(wu.Increment(), wu.EndFlowControl())
	s.mu.Unlock()
	return err
}

// resetOnStreamError answers a *StreamError locally (RST_STREAM + drop)
// rather than propagating it to tear the whole connection down, per §7's
// "stream-level errors: RST_STREAM and drop the stream, others continue".
func (c *Connection) resetOnStreamError(s *Stream, err error) error {
	var se *StreamError
	if errors.As(err, &se) {
		fr := AcquireFrameHeader()
		fr.SetStream(s.id)
		rst := AcquireFrame(FrameResetStream).(*RstStream)
		rst.SetCode(se.Code)
		fr.SetBody(rst)
		c.enqueueControl(fr)
		s.reset(se.Code)
		if s.events.OnError != nil {
			s.events.OnError(se.Code)
		}
		return nil
	}
	return err
}

// pumpOutbound performs one ID-ordered fair scan over every live stream,
// draining each one's flow controller and writing whatever becomes
// forwardable, per §4.4/§5's "strict ID-order scan, per-stream enqueue
// order" rule. Every stream's drain is additionally gated by c.connFlow,
// the connection-scope window (§4.4: a DATA frame may only be forwarded
// if its length fits both its stream's window and the connection
// window, decrementing both on forward). c.connFlow itself is read and
// debited without c.mu: like the rest of the single-threaded pump (§5),
// it is only ever touched from the goroutine running Serve, the same
// goroutine that calls pumpOutbound.
func (c *Connection) pumpOutbound() error {
	c.mu.Lock()
	streams := append([]*Stream(nil), c.streams.all()...)
	c.mu.Unlock()

	for _, s := range streams {
		s.mu.Lock()
		frames, consumed := s.flow.DrainWithBudget(c.connFlow.Window())
		s.mu.Unlock()
		if consumed > 0 {
			c.connFlow.debit(consumed)
		}

		for _, pf := range frames {
			fr := AcquireFrameHeader()
			fr.SetStream(s.id)
			d := AcquireFrame(FrameData).(*Data)
			d.SetData(pf.data)
			d.SetEndStream(pf.endStream)
			fr.SetBody(d)
			if _, err := fr.WriteTo(c.bw); err != nil {
				ReleaseFrameHeader(fr)
				return err
			}
			ReleaseFrameHeader(fr)
		}

		s.mu.Lock()
		done := s.state == StateClosed && !s.flow.Pending()
		s.mu.Unlock()
		if done {
			c.mu.Lock()
			c.streams.del(s.id)
			c.mu.Unlock()
		}
	}
	return c.bw.Flush()
}

// foldHeaders turns an ordered, possibly-repeating field list into the
// map[string][]string shape §6.4's events expose, folding duplicate
// names into ordered value lists per §4.2's multi-valued header rule.
func foldHeaders(fields []hpack.HeaderField) map[string][]string {
	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		out[f.Name] = append(out[f.Name], f.Value)
	}
	return out
}
