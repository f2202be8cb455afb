package h2

const settingEntrySize = 8

// SettingID is one of the identifiers listed in this draft's SETTINGS
// table. Unlike RFC 7540, HEADER_TABLE_SIZE/ENABLE_PUSH/MAX_FRAME_SIZE
// are not part of this numbering; only three IDs are defined.
type SettingID uint32

const (
	SettingsMaxConcurrentStreams SettingID = 4
	SettingsInitialWindowSize    SettingID = 7
	SettingsFlowControlOptions   SettingID = 10
)

// DefaultInitialWindowSize is SETTINGS_INITIAL_WINDOW_SIZE's default.
const DefaultInitialWindowSize = 65535

// FlowControlDisabled is the LSB of SETTINGS_FLOW_CONTROL_OPTIONS: when
// set, flow control is disabled for streams created after this SETTINGS
// frame is processed. Existing streams keep their windows (§9 open
// question, resolved this way — see DESIGN.md).
const FlowControlDisabled = 0x1

// SettingEntry is one raw (id, value) pair as it appears on the wire, in
// arrival order. Order matters for "first value wins" on duplicate IDs.
type SettingEntry struct {
	ID    SettingID
	Value uint32
}

var _ Frame = (*Settings)(nil)

// Settings is the connection-scope SETTINGS frame. This draft ACKs a
// SETTINGS frame by sending one of its own — there is no ACK flag bit to
// set here, unlike RFC 7540.
type Settings struct {
	entries []SettingEntry
}

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() { s.entries = s.entries[:0] }

func (s *Settings) CopyTo(dst *Settings) {
	dst.entries = append(dst.entries[:0], s.entries...)
}

// Entries returns the raw ordered (id, value) pairs of this frame.
func (s *Settings) Entries() []SettingEntry { return s.entries }

// Add appends one raw setting to be serialized.
func (s *Settings) Add(id SettingID, value uint32) {
	s.entries = append(s.entries, SettingEntry{ID: id, Value: value})
}

func (s *Settings) Deserialize(fr *FrameHeader) error {
	if len(fr.payload)%settingEntrySize != 0 {
		return connErrorf(ProtocolError, "SETTINGS length %d is not a multiple of %d", len(fr.payload), settingEntrySize)
	}

	s.entries = s.entries[:0]
	for off := 0; off < len(fr.payload); off += settingEntrySize {
		b := fr.payload[off : off+settingEntrySize]
		id := SettingID(uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
		value := uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])
		s.entries = append(s.entries, SettingEntry{ID: id, Value: value})
	}
	return nil
}

func (s *Settings) Serialize(fr *FrameHeader) {
	fr.payload = growBuf(fr.payload, len(s.entries)*settingEntrySize)
	for i, e := range s.entries {
		b := fr.payload[i*settingEntrySize : (i+1)*settingEntrySize]
		b[0] = 0
		b[1] = byte(e.ID >> 16)
		b[2] = byte(e.ID >> 8)
		b[3] = byte(e.ID)
		b[4] = byte(e.Value >> 24)
		b[5] = byte(e.Value >> 16)
		b[6] = byte(e.Value >> 8)
		b[7] = byte(e.Value)
	}
}

// Values is the humanized, applied view of a peer's SETTINGS, tracking
// which fields were actually sent (so a zero value isn't confused with
// "not present").
type Values struct {
	MaxConcurrentStreams    uint32
	HasMaxConcurrentStreams bool
	InitialWindowSize       uint32
	FlowControlOptions      uint32
	HasFlowControlOptions   bool
}

// DefaultValues returns a Values with this draft's defaults.
func DefaultValues() Values {
	return Values{InitialWindowSize: DefaultInitialWindowSize}
}

// Apply folds entries onto v using "duplicate IDs: first value wins"
// (§4.1) and ignores unknown IDs.
func (v *Values) Apply(entries []SettingEntry) {
	seen := make(map[SettingID]bool, len(entries))
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		switch e.ID {
		case SettingsMaxConcurrentStreams:
			v.MaxConcurrentStreams = e.Value
			v.HasMaxConcurrentStreams = true
		case SettingsInitialWindowSize:
			v.InitialWindowSize = e.Value
		case SettingsFlowControlOptions:
			v.FlowControlOptions = e.Value
			v.HasFlowControlOptions = true
		}
	}
}

// FlowControlDisabledForNewStreams reports whether the LSB of
// SETTINGS_FLOW_CONTROL_OPTIONS was set by the last Apply call.
func (v *Values) FlowControlDisabledForNewStreams() bool {
	return v.HasFlowControlOptions && v.FlowControlOptions&FlowControlDisabled != 0
}
