package h2

import "github.com/vh2proto/engine/h2/wire"

var _ Frame = (*WindowUpdate)(nil)

// WindowUpdate carries a u31 increment. END_FLOW_CONTROL (bit 0) tells
// the receiver to set that window to infinity permanently, rather than
// adding the increment.
type WindowUpdate struct {
	increment   uint32
	endFlowCtrl bool
}

func (wu *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (wu *WindowUpdate) Reset() {
	wu.increment = 0
	wu.endFlowCtrl = false
}

func (wu *WindowUpdate) CopyTo(dst *WindowUpdate) {
	dst.increment = wu.increment
	dst.endFlowCtrl = wu.endFlowCtrl
}

func (wu *WindowUpdate) Increment() uint32        { return wu.increment }
func (wu *WindowUpdate) SetIncrement(v uint32)    { wu.increment = v }
func (wu *WindowUpdate) EndFlowControl() bool     { return wu.endFlowCtrl }
func (wu *WindowUpdate) SetEndFlowControl(v bool) { wu.endFlowCtrl = v }

func (wu *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 4 {
		return connErrorf(ProtocolError, "WINDOW_UPDATE frame too short (%d bytes)", len(fr.payload))
	}
	wu.increment = wire.U31(fr.payload[:4])
	wu.endFlowCtrl = fr.Flags().Has(FlagEndFlowControl)
	return nil
}

func (wu *WindowUpdate) Serialize(fr *FrameHeader) {
	if wu.endFlowCtrl {
		fr.SetFlags(fr.Flags() | FlagEndFlowControl)
	}
	fr.payload = growBuf(fr.payload, 4)
	wire.PutU31(fr.payload[:4], wu.increment)
}
