package hpack

import "testing"

func TestWriteIntVectors(t *testing.T) {
	cases := []struct {
		n    uint
		i    uint64
		want []byte
	}{
		{5, 1337, []byte{0x1F, 0x9A, 0x0A}},
		{0, 1337, []byte{0xB9, 0x0A}},
		{5, 15, []byte{15}},
		{7, 122, []byte{122}},
	}
	for _, c := range cases {
		got := writeInt(nil, c.n, c.i)
		if string(got) != string(c.want) {
			t.Fatalf("writeInt(%d,%d) = % X, want % X", c.n, c.i, got, c.want)
		}
	}
}

func TestReadIntRoundTrip(t *testing.T) {
	cases := []struct {
		n uint
		i uint64
	}{
		{5, 1337}, {0, 1337}, {5, 15}, {7, 122}, {7, 127}, {7, 128}, {0, 0}, {5, 1 << 20},
	}
	for _, c := range cases {
		enc := writeInt(nil, c.n, c.i)
		rest, got, err := readInt(c.n, enc)
		if err != nil {
			t.Fatalf("readInt(%d, % X) error: %v", c.n, enc, err)
		}
		if got != c.i {
			t.Fatalf("readInt(%d, % X) = %d, want %d", c.n, enc, got, c.i)
		}
		if len(rest) != 0 {
			t.Fatalf("readInt left %d unread bytes", len(rest))
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	want := []byte{0x0A, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A}
	got := writeString(nil, "abcdefghij")
	if string(got) != string(want) {
		t.Fatalf("writeString = % X, want % X", got, want)
	}

	rest, s, err := readString(got)
	if err != nil {
		t.Fatalf("readString error: %v", err)
	}
	if s != "abcdefghij" || len(rest) != 0 {
		t.Fatalf("readString = %q, rest=%d", s, len(rest))
	}
}

func TestCoderRoundTripSimpleRequest(t *testing.T) {
	enc := NewCoder(RequestTable)
	dec := NewCoder(RequestTable)

	fields := []HeaderField{
		{Name: ":method", Value: "get"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}

	block := enc.Encode(fields)
	got, err := dec.Decode(block)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	want := map[string]string{":method": "get", ":scheme": "https", ":path": "/"}
	seen := map[string]string{}
	for _, f := range got {
		seen[f.Name] = f.Value
	}
	for k, v := range want {
		if seen[k] != v {
			t.Fatalf("missing/incorrect field %s: got %q want %q", k, seen[k], v)
		}
	}
}

func TestCoderPersistsReferenceSetAcrossBlocks(t *testing.T) {
	enc := NewCoder(RequestTable)
	dec := NewCoder(RequestTable)

	fields := []HeaderField{{Name: ":method", Value: "get"}, {Name: "user-agent", Value: "engine/1"}}

	block1 := enc.Encode(fields)
	got1, err := dec.Decode(block1)
	if err != nil {
		t.Fatalf("decode block1: %v", err)
	}
	if len(got1) != 2 {
		t.Fatalf("block1: got %d fields, want 2", len(got1))
	}

	// Second block restates the exact same headers: both are already in
	// the reference set from block1, so the encoder emits nothing for
	// them and the decoder recovers both purely from the implicit
	// end-of-block re-emit, per the glossary's "Reference set" entry.
	block2 := enc.Encode(fields)
	if len(block2) != 0 {
		t.Fatalf("block2: expected zero wire bytes for an unchanged header set, got % X", block2)
	}
	got2, err := dec.Decode(block2)
	if err != nil {
		t.Fatalf("decode block2: %v", err)
	}
	if len(got2) != 2 {
		t.Fatalf("block2: got %d fields (expected implicit re-emit of 2), %+v", len(got2), got2)
	}
	seen := map[string]string{}
	for _, f := range got2 {
		seen[f.Name] = f.Value
	}
	if seen[":method"] != "get" || seen["user-agent"] != "engine/1" {
		t.Fatalf("block2: wrong values %+v", seen)
	}

	// A third block that changes user-agent's value must re-encode it
	// (a literal substitution, since the name is still indexed) while
	// :method stays implicit.
	block3 := enc.Encode([]HeaderField{{Name: ":method", Value: "get"}, {Name: "user-agent", Value: "engine/2"}})
	got3, err := dec.Decode(block3)
	if err != nil {
		t.Fatalf("decode block3: %v", err)
	}
	seen3 := map[string]string{}
	for _, f := range got3 {
		seen3[f.Name] = f.Value
	}
	if seen3[":method"] != "get" || seen3["user-agent"] != "engine/2" {
		t.Fatalf("block3: wrong values %+v", seen3)
	}
}

func TestCoderMultiByteUTF8(t *testing.T) {
	enc := NewCoder(ResponseTable)
	dec := NewCoder(ResponseTable)

	fields := []HeaderField{{Name: "x-note", Value: "héllo wörld 日本語"}}
	block := enc.Encode(fields)
	got, err := dec.Decode(block)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 1 || got[0].Value != "héllo wörld 日本語" {
		t.Fatalf("got %+v", got)
	}
}
