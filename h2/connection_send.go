package h2

import (
	"github.com/vh2proto/engine/h2/hpack"
)

// maxHeaderChunk is the largest header-block fragment §4.2 allows per
// HEADERS/PUSH_PROMISE frame in a series.
const maxHeaderChunk = 16383

// SendHeaders compresses fields and emits them as a HEADERS series on s,
// applying the send-side state transition before anything is queued.
func (c *Connection) SendHeaders(s *Stream, fields []hpack.HeaderField, priority uint32, hasPriority, endStream bool) error {
	if err := s.transition(FrameHeaders, sent, endStream); err != nil {
		return err
	}

	c.mu.Lock()
	block := c.encoder.Encode(fields)
	c.mu.Unlock()

	c.sendHeaderSeries(s.id, FrameHeaders, 0, block, hasPriority, priority, endStream)
	return nil
}

// Promise reserves the next push stream ID, transitions it to
// RESERVED_LOCAL, and emits a PUSH_PROMISE series on parent.
func (c *Connection) Promise(parent *Stream, fields []hpack.HeaderField) (*Stream, error) {
	c.mu.Lock()
	id := c.nextPush
	c.nextPush += 2
	promised := newStream(id, int32(c.peerValues.InitialWindowSize))
	c.streams.insert(promised)
	block := c.encoder.Encode(fields)
	c.mu.Unlock()

	if err := promised.promisedTransition(sent); err != nil {
		return nil, err
	}

	c.sendHeaderSeries(parent.id, FramePushPromise, id, block, false, 0, false)
	return promised, nil
}

func (c *Connection) sendHeaderSeries(streamID uint32, kind FrameType, promised uint32, block []byte, hasPriority bool, priority uint32, endStream bool) {
	if len(block) == 0 {
		block = []byte{}
	}
	for off := 0; off == 0 || off < len(block); {
		end := off + maxHeaderChunk
		if end > len(block) {
			end = len(block)
		}
		chunk := block[off:end]
		last := end == len(block)

		fr := AcquireFrameHeader()
		fr.SetStream(streamID)

		switch kind {
		case FrameHeaders:
			h := AcquireFrame(FrameHeaders).(*Headers)
			if off == 0 && hasPriority {
				h.SetPriority(priority)
			}
			h.SetEndHeaders(last)
			h.SetEndStream(last && endStream)
			h.SetHeaders(chunk)
			fr.SetBody(h)
		case FramePushPromise:
			pp := AcquireFrame(FramePushPromise).(*PushPromise)
			pp.SetPromisedStream(promised)
			pp.SetEndHeaders(last)
			pp.SetHeader(chunk)
			fr.SetBody(pp)
		}

		c.enqueueControl(fr)
		off = end
		if last {
			break
		}
	}
}

// SendData queues b on s's flow controller, deferring to the outbound
// pump for the actual window-gated write.
func (c *Connection) SendData(s *Stream, b []byte, endStream bool) error {
	if err := s.transition(FrameData, sent, endStream); err != nil {
		return err
	}
	s.mu.Lock()
	s.flow.Enqueue(b, endStream)
	s.mu.Unlock()
	c.kick()
	return nil
}

// End closes s's local send side. If bytes are still queued on s's flow
// controller, the last queued frame is the one that will carry
// END_STREAM onto the wire (§4.3: the last frame sent on a stream must
// set it); otherwise the tail frame has already drained and this
// enqueues a fresh empty END_STREAM DATA frame instead.
func (c *Connection) End(s *Stream) error {
	if err := s.transition(FrameData, sent, true); err != nil {
		return err
	}

	s.mu.Lock()
	marked := s.flow.MarkTailEndStream()
	s.mu.Unlock()
	if marked {
		c.kick()
		return nil
	}

	s.mu.Lock()
	s.flow.Enqueue(nil, true)
	s.mu.Unlock()
	c.kick()
	return nil
}

// ResetStream sends RST_STREAM(code) on s and transitions it to CLOSED.
func (c *Connection) ResetStream(s *Stream, code ErrorCode) error {
	if err := s.transition(FrameResetStream, sent, false); err != nil {
		return err
	}
	fr := AcquireFrameHeader()
	fr.SetStream(s.id)
	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(code)
	fr.SetBody(rst)
	c.enqueueControl(fr)
	s.reset(code)
	return nil
}

// SendPriority sends a PRIORITY frame carrying value on s.
func (c *Connection) SendPriority(s *Stream, value uint32) error {
	s.SetPriority(value)
	fr := AcquireFrameHeader()
	fr.SetStream(s.id)
	p := AcquireFrame(FramePriority).(*Priority)
	p.SetValue(value)
	fr.SetBody(p)
	c.enqueueControl(fr)
	return nil
}

// kick nudges the pump to re-scan streams for newly forwardable DATA.
// It never blocks: the pump already re-scans after every event, so a
// full signal channel means a scan is already pending.
func (c *Connection) kick() {
	select {
	case c.control <- func() {}:
	case <-c.done:
	default:
	}
}
