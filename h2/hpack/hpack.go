package hpack

import "fmt"

// HeaderField is one ordered (name, value) pair, the unit the Coder
// encodes/decodes. Header blocks are ordered and may repeat a name (the
// multi-valued case of §4.2), so a slice rather than a map is the
// natural wire-level representation; folding repeats into
// map[string][]string is left to the facade layer.
type HeaderField struct {
	Name, Value string
}

// ErrCompression reports a block that is well-formed but refers to a
// table index out of range, or otherwise leaves the table in an
// inconsistent state. Per the engine's error design this is always
// connection-fatal: the two directions' tables are no longer in sync.
type ErrCompression struct{ Msg string }

func (e *ErrCompression) Error() string { return "hpack: " + e.Msg }

// Coder encodes or decodes one direction of header blocks against a
// single Table, implementing the draft HPACK-00 reference-set algorithm
// of §4.2.
type Coder struct {
	table *Table
}

// NewCoder returns a Coder seeded with the static table for kind. Use
// RequestTable for encoding requests / decoding requests, ResponseTable
// for encoding responses / decoding responses.
func NewCoder(kind Kind) *Coder { return &Coder{table: NewTable(kind)} }

// SetMaxTableSize adjusts the dynamic table's size bound.
func (c *Coder) SetMaxTableSize(n int) { c.table.limit = n }

const (
	flagIndexed               = 0x80
	flagLiteralNoIndex        = 0x60
	flagLiteralIncremental    = 0x40
	maskTop3                  = 0xE0
	maskTop2                  = 0xC0
)

func appendPrefixed(dst []byte, n uint, v uint64, flag byte) []byte {
	before := len(dst)
	dst = writeInt(dst, n, v)
	dst[before] |= flag
	return dst
}

// Encode implements §4.2's encoder algorithm over fields, lower-casing
// names as it goes, and returns the wire block. The reference-set state
// (the three bits on c.table's entries) carries over to the next call,
// exactly as the draft intends across a series of blocks on one
// connection direction.
func (c *Coder) Encode(fields []HeaderField) []byte {
	var dst []byte

	for _, f := range fields {
		name := lower(f.Name)
		value := f.Value

		if idx := c.table.find(name, value); idx != 0 {
			e := c.table.At(idx)
			switch {
			case !e.reference:
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				e.reference = true
				e.emitted = true
				// A header entering the reference set this block is
				// assumed wanted going forward too, until the caller
				// stops restating it; keep protects it from this
				// block's own flush below.
				e.keep = true
			case e.keep:
				// Cancel the deferred "keep" decision: a no-op
				// remove/re-add pair, twice.
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				e.keep = false
				e.emitted = true
			case e.emitted:
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
				dst = appendPrefixed(dst, 7, uint64(idx), flagIndexed)
			default:
				e.keep = true
			}
			continue
		}

		if nidx := c.table.findName(name); nidx != 0 {
			dst = appendPrefixed(dst, 6, uint64(nidx), 0x00)
			dst = writeInt(dst, 0, uint64(nidx))
			dst = writeString(dst, value)
			c.table.Substitute(nidx, name, value)
			if e := c.table.At(nidx); e != nil {
				e.keep = true
			}
			continue
		}

		before := c.table.Len()
		dst = appendPrefixed(dst, 5, 0, flagLiteralIncremental)
		dst = writeString(dst, name)
		dst = writeString(dst, value)
		c.table.InsertIncremental(name, value)
		if c.table.Len() > before {
			if e := c.table.At(c.table.Len()); e != nil {
				e.keep = true
			}
		}
	}

	for i := range c.table.list {
		e := &c.table.list[i]
		if e.reference && !e.keep {
			dst = appendPrefixed(dst, 7, uint64(i+1), flagIndexed)
			e.reference = false
		}
		e.keep = false
		e.emitted = false
	}

	return dst
}

// Decode implements §4.2's decoder algorithm over a wire block and
// returns the ordered fields it yields.
func (c *Coder) Decode(block []byte) ([]HeaderField, error) {
	var out []HeaderField
	b := block

	for len(b) > 0 {
		switch {
		case b[0]&flagIndexed != 0:
			rest, idx, err := readInt(7, b)
			if err != nil {
				return nil, err
			}
			b = rest
			e := c.table.At(int(idx))
			if e == nil {
				return nil, &ErrCompression{Msg: fmt.Sprintf("indexed entry %d out of range", idx)}
			}
			if e.reference {
				e.reference = false
			} else {
				out = append(out, HeaderField{Name: e.Name, Value: e.Value})
				e.reference = true
				e.emitted = true
			}

		case b[0]&maskTop3 == flagLiteralNoIndex:
			name, value, rest, err := c.decodeLiteral(b, 5)
			if err != nil {
				return nil, err
			}
			b = rest
			out = append(out, HeaderField{Name: name, Value: value})

		case b[0]&maskTop3 == flagLiteralIncremental:
			name, value, rest, err := c.decodeLiteral(b, 5)
			if err != nil {
				return nil, err
			}
			b = rest
			out = append(out, HeaderField{Name: name, Value: value})
			c.table.InsertIncremental(name, value)

		case b[0]&maskTop2 == 0x00:
			rest, nameIdx, err := readInt(6, b)
			if err != nil {
				return nil, err
			}
			var name string
			if nameIdx == 0 {
				rest, name, err = readString(rest)
				if err != nil {
					return nil, err
				}
			} else {
				e := c.table.At(int(nameIdx))
				if e == nil {
					return nil, &ErrCompression{Msg: fmt.Sprintf("name index %d out of range", nameIdx)}
				}
				name = e.Name
			}
			rest, subIdx, err := readInt(0, rest)
			if err != nil {
				return nil, err
			}
			rest, value, err := readString(rest)
			if err != nil {
				return nil, err
			}
			b = rest
			out = append(out, HeaderField{Name: name, Value: value})
			c.table.Substitute(int(subIdx), name, value)

		default:
			return nil, &ErrCompression{Msg: "unrecognized representation byte"}
		}
	}

	for i := range c.table.list {
		e := &c.table.list[i]
		if e.reference && !e.emitted {
			out = append(out, HeaderField{Name: e.Name, Value: e.Value})
		}
	}
	c.table.resetEmitted()

	return out, nil
}

func (c *Coder) decodeLiteral(b []byte, n uint) (name, value string, rest []byte, err error) {
	rest, nameIdx, err := readInt(n, b)
	if err != nil {
		return "", "", b, err
	}
	if nameIdx == 0 {
		rest, name, err = readString(rest)
		if err != nil {
			return "", "", b, err
		}
	} else {
		e := c.table.At(int(nameIdx))
		if e == nil {
			return "", "", b, &ErrCompression{Msg: fmt.Sprintf("name index %d out of range", nameIdx)}
		}
		name = e.Name
	}
	rest, value, err = readString(rest)
	if err != nil {
		return "", "", b, err
	}
	return name, value, rest, nil
}

func lower(s string) string {
	needs := false
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			needs = true
			break
		}
	}
	if !needs {
		return s
	}
	b := []byte(s)
	for i := range b {
		if 'A' <= b[i] && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
