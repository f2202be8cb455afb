package h2

import "math"

// maxWindow is the largest finite window this draft allows (2^31 - 1).
const maxWindow = 1<<31 - 1

// infiniteWindow marks a window that was set to infinity by a
// WINDOW_UPDATE carrying END_FLOW_CONTROL. Once set it can never become
// finite again (§4.5).
const infiniteWindow = math.MaxInt64

// pendingFrame is one outbound DATA payload waiting on the flow window,
// grounded on the teacher's streamWrite/writeData chunking loops but
// reframed as an explicit FIFO queue instead of a blocking io.Writer.
type pendingFrame struct {
	data      []byte
	endStream bool
}

// FlowController holds one instance's outgoing window and its FIFO of
// pending DATA, per §4.5. It is used both at connection scope and at
// each stream's scope.
type FlowController struct {
	window int64
	queue  []pendingFrame
}

func newFlowController(initial int32) *FlowController {
	return &FlowController{window: int64(initial)}
}

// Window returns the current window. infiniteWindow means "unbounded".
func (f *FlowController) Window() int64 { return f.window }

// Enqueue appends a DATA payload to the FIFO.
func (f *FlowController) Enqueue(data []byte, endStream bool) {
	f.queue = append(f.queue, pendingFrame{data: append([]byte(nil), data...), endStream: endStream})
}

// Pending reports whether any frame is queued.
func (f *FlowController) Pending() bool { return len(f.queue) > 0 }

// ApplyUpdate folds a WINDOW_UPDATE onto the window. endFlowControl sets
// the window to infinity permanently; otherwise increment is added, with
// an overflow check.
func (f *FlowController) ApplyUpdate(increment uint32, endFlowControl bool) error {
	if endFlowControl {
		f.window = infiniteWindow
		return nil
	}
	if f.window == infiniteWindow {
		return connErrorf(FlowControlError, "WINDOW_UPDATE received after END_FLOW_CONTROL")
	}
	next := f.window + int64(increment)
	if next > maxWindow {
		return connErrorf(FlowControlError, "window update overflows %d", maxWindow)
	}
	f.window = next
	return nil
}

// Drain pulls as many whole or window-limited-prefix chunks as the
// current window allows, decrementing window as it goes, and returns
// them in order. A DATA frame longer than the window is split: the
// window-sized prefix is returned and the remainder re-queued at the
// head (the only place a queued frame's data changes after enqueue;
// MarkTailEndStream changes only a queued frame's END_STREAM bit).
// Equivalent to
// DrainWithBudget(infiniteWindow), i.e. unconstrained by any other
// window.
func (f *FlowController) Drain() []pendingFrame {
	frames, _ := f.DrainWithBudget(infiniteWindow)
	return frames
}

// DrainWithBudget behaves like Drain, except each frame is additionally
// capped by budget — a second, independently-owned window (the
// connection-scope FlowController in pumpOutbound) that this call does
// not mutate. It returns the frames forwarded and the number of bytes
// consumed against budget, which the caller must debit on the other
// FlowController itself; §4.4 requires a DATA frame be forwardable under
// both its stream window and the connection window at once, with
// whichever is tighter deciding where to split.
func (f *FlowController) DrainWithBudget(budget int64) (frames []pendingFrame, consumed int64) {
	for len(f.queue) > 0 {
		head := f.queue[0]
		need := int64(len(head.data))

		avail := f.window
		if f.window == infiniteWindow || (budget != infiniteWindow && budget < avail) {
			avail = budget
		}

		if avail == infiniteWindow || avail >= need {
			if f.window != infiniteWindow {
				f.window -= need
			}
			if budget != infiniteWindow {
				budget -= need
				consumed += need
			}
			frames = append(frames, head)
			f.queue = f.queue[1:]
			continue
		}

		if avail <= 0 {
			break
		}

		// Split: emit the avail-sized prefix, keep the suffix queued.
		n := int(avail)
		prefix := head.data[:n]
		suffix := head.data[n:]
		frames = append(frames, pendingFrame{data: prefix, endStream: false})
		f.queue[0] = pendingFrame{data: suffix, endStream: head.endStream}
		if f.window != infiniteWindow {
			f.window -= avail
		}
		if budget != infiniteWindow {
			budget -= avail
			consumed += avail
		}
		break
	}
	return frames, consumed
}

// debit decrements the window by n, used to charge a separate
// FlowController's DrainWithBudget consumption against this one — the
// connection-scope window accounting for bytes a stream's drain just
// forwarded.
func (f *FlowController) debit(n int64) {
	if f.window == infiniteWindow {
		return
	}
	f.window -= n
}

// drop empties the queue without forwarding, used when a stream resets.
func (f *FlowController) drop() {
	f.queue = nil
}

// MarkTailEndStream sets END_STREAM on the last queued frame, so a
// caller that is ending a stream with bytes still in flight doesn't have
// to wait for them to drain before it can mark the end. Reports whether
// there was a queued frame to mark; an empty queue means the tail frame
// has already been drained and the caller must queue a fresh empty
// END_STREAM frame instead.
func (f *FlowController) MarkTailEndStream() bool {
	if len(f.queue) == 0 {
		return false
	}
	f.queue[len(f.queue)-1].endStream = true
	return true
}
