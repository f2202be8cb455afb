package h2

var _ Frame = (*Data)(nil)

// Data carries a stream's body bytes. This draft's DATA frame has no
// PADDED flag: the only flags are END_STREAM and the reserved bit.
type Data struct {
	endStream bool
	b         []byte
}

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.b = d.b[:0]
}

func (d *Data) CopyTo(dst *Data) {
	dst.endStream = d.endStream
	dst.b = append(dst.b[:0], d.b...)
}

func (d *Data) EndStream() bool          { return d.endStream }
func (d *Data) SetEndStream(value bool)  { d.endStream = value }
func (d *Data) Data() []byte             { return d.b }
func (d *Data) SetData(b []byte)         { d.b = append(d.b[:0], b...) }
func (d *Data) Append(b []byte)          { d.b = append(d.b, b...) }
func (d *Data) Len() int                 { return len(d.b) }

func (d *Data) Write(b []byte) (int, error) {
	d.Append(b)
	return len(b), nil
}

func (d *Data) Deserialize(fr *FrameHeader) error {
	d.endStream = fr.Flags().Has(FlagEndStream)
	d.b = append(d.b[:0], fr.payload...)
	return nil
}

func (d *Data) Serialize(fr *FrameHeader) {
	if d.endStream {
		fr.SetFlags(fr.Flags() | FlagEndStream)
	}
	fr.payload = append(fr.payload[:0], d.b...)
}
