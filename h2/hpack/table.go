// Package hpack implements the draft HPACK-00 header compressor used by
// this HTTP/2 draft-04 era engine: a reference-set table model, not
// RFC 7541's dynamic table. See Entry for the three per-entry bits that
// carry the reference-set dance.
package hpack

// Entry is one (name, value) pair held by a Table, plus the three bits
// the draft-00 algorithm needs. Changing how these three bits are
// threaded silently breaks compression, so they stay explicit fields
// rather than being folded into a generic flags byte.
type Entry struct {
	Name, Value string

	reference bool // member of the current reference set
	emitted   bool // already delivered for this block
	keep      bool // marked to survive this block's flush
}

// Size is the HeaderTableEntry size attribute of §3: the encoded length
// of both strings plus a fixed 32-byte overhead.
func (e *Entry) Size() int { return len(e.Name) + len(e.Value) + 32 }

// Kind selects which static table a Table is seeded with.
type Kind int

const (
	RequestTable Kind = iota
	ResponseTable
)

// DefaultTableLimit is the default HeaderTable size bound (§3).
const DefaultTableLimit = 4096

var requestStatic = []Entry{
	{Name: ":scheme", Value: "http"},
	{Name: ":scheme", Value: "https"},
	{Name: ":host", Value: ""},
	{Name: ":path", Value: "/"},
	{Name: ":method", Value: "get"},
	{Name: "accept", Value: ""},
	{Name: "accept-charset", Value: ""},
	{Name: "accept-encoding", Value: ""},
	{Name: "accept-language", Value: ""},
	{Name: "cookie", Value: ""},
	{Name: "if-modified-since", Value: ""},
	{Name: "user-agent", Value: ""},
	{Name: "referer", Value: ""},
	{Name: "authorization", Value: ""},
	{Name: "allow", Value: ""},
	{Name: "cache-control", Value: ""},
	{Name: "connection", Value: ""},
	{Name: "content-length", Value: ""},
	{Name: "content-type", Value: ""},
	{Name: "date", Value: ""},
	{Name: "expect", Value: ""},
	{Name: "from", Value: ""},
	{Name: "if-match", Value: ""},
	{Name: "if-none-match", Value: ""},
	{Name: "if-range", Value: ""},
	{Name: "if-unmodified-since", Value: ""},
	{Name: "max-forwards", Value: ""},
	{Name: "proxy-authorization", Value: ""},
	{Name: "range", Value: ""},
	{Name: "via", Value: ""},
}

var responseStatic = []Entry{
	{Name: ":status", Value: "200"},
	{Name: "age", Value: ""},
	{Name: "cache-control", Value: ""},
	{Name: "content-length", Value: ""},
	{Name: "content-type", Value: ""},
	{Name: "date", Value: ""},
	{Name: "etag", Value: ""},
	{Name: "expires", Value: ""},
	{Name: "last-modified", Value: ""},
	{Name: "server", Value: ""},
	{Name: "set-cookie", Value: ""},
	{Name: "vary", Value: ""},
	{Name: "via", Value: ""},
	{Name: "access-control-allow-origin", Value: ""},
	{Name: "accept-ranges", Value: ""},
	{Name: "allow", Value: ""},
	{Name: "connection", Value: ""},
	{Name: "content-disposition", Value: ""},
	{Name: "content-encoding", Value: ""},
	{Name: "content-language", Value: ""},
	{Name: "content-location", Value: ""},
	{Name: "content-range", Value: ""},
	{Name: "link", Value: ""},
	{Name: "location", Value: ""},
	{Name: "proxy-authenticate", Value: ""},
	{Name: "refresh", Value: ""},
	{Name: "retry-after", Value: ""},
	{Name: "strict-transport-security", Value: ""},
	{Name: "transfer-encoding", Value: ""},
	{Name: "www-authenticate", Value: ""},
}

// Table is the ordered sequence of Entry the encoder/decoder mutate.
// Indices used by the wire representations are 1-based: index 0 is
// reserved in literal representations to mean "the name follows as a
// string", so table entry i (1-based) is stored at list[i-1].
type Table struct {
	list  []Entry
	limit int
}

// NewTable returns a Table seeded with the static entries for kind.
func NewTable(kind Kind) *Table {
	t := &Table{limit: DefaultTableLimit}
	switch kind {
	case RequestTable:
		t.list = append(t.list, requestStatic...)
	case ResponseTable:
		t.list = append(t.list, responseStatic...)
	}
	return t
}

func (t *Table) Len() int { return len(t.list) }

// At returns the entry at 1-based index i, or nil if out of range.
func (t *Table) At(i int) *Entry {
	if i < 1 || i > len(t.list) {
		return nil
	}
	return &t.list[i-1]
}

func (t *Table) size() int {
	n := 0
	for i := range t.list {
		n += t.list[i].Size()
	}
	return n
}

// evictFront drops entries from the front (the oldest / lowest index)
// until adding need bytes would fit within limit, per §3's insertion
// rule. If even an empty table can't fit the entry, evictFront drops
// everything and the caller silently discards the insert.
func (t *Table) evictFront(need int) {
	for len(t.list) > 0 && t.size()+need > t.limit {
		t.list = t.list[1:]
	}
}

// InsertIncremental appends a new entry "at infinity" (the end of the
// table), evicting from the front as needed.
func (t *Table) InsertIncremental(name, value string) {
	e := Entry{Name: name, Value: value, reference: true, emitted: true}
	t.evictFront(e.Size())
	if e.Size() > t.limit {
		return
	}
	t.list = append(t.list, e)
}

// Substitute replaces the entry at 1-based index i with a new value,
// keeping its position, per the substitution-indexing representation.
// The replacement can be larger than what it replaces, so this evicts
// from the front exactly like InsertIncremental, just excluding the
// slot being substituted from eviction.
func (t *Table) Substitute(i int, name, value string) {
	if i < 1 || i > len(t.list) {
		return
	}
	idx := i - 1
	t.list[idx] = Entry{Name: name, Value: value, reference: true, emitted: true}

	for idx > 0 && t.size() > t.limit {
		t.list = t.list[1:]
		idx--
	}
	if t.size() > t.limit {
		// Doesn't fit even with everything before it evicted: drop it,
		// same as InsertIncremental dropping an over-limit insert.
		t.list = append(t.list[:idx], t.list[idx+1:]...)
	}
}

// find returns the 1-based index of a full (name, value) match, or 0.
func (t *Table) find(name, value string) int {
	for i := range t.list {
		if t.list[i].Name == name && t.list[i].Value == value {
			return i + 1
		}
	}
	return 0
}

// findName returns the 1-based index of the first entry whose name
// matches, or 0.
func (t *Table) findName(name string) int {
	for i := range t.list {
		if t.list[i].Name == name {
			return i + 1
		}
	}
	return 0
}

// resetEmitted clears the emitted bit on every entry, run at block end.
func (t *Table) resetEmitted() {
	for i := range t.list {
		t.list[i].emitted = false
	}
}
