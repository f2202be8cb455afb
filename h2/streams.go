package h2

import "sort"

// streamRegistry is an ID-ordered stream set, grounded on the teacher's
// sort.Search-based Streams type. Ordering is load-bearing here: §4.4's
// outbound pump scans streams in numerical ID order as its tie-break
// policy.
type streamRegistry struct {
	list []*Stream
}

func (r *streamRegistry) insert(s *Stream) {
	i := sort.Search(len(r.list), func(i int) bool { return r.list[i].id >= s.id })
	if i == len(r.list) {
		r.list = append(r.list, s)
		return
	}
	r.list = append(r.list, nil)
	copy(r.list[i+1:], r.list[i:])
	r.list[i] = s
}

func (r *streamRegistry) del(id uint32) *Stream {
	i := sort.Search(len(r.list), func(i int) bool { return r.list[i].id >= id })
	if i < len(r.list) && r.list[i].id == id {
		s := r.list[i]
		r.list = append(r.list[:i], r.list[i+1:]...)
		return s
	}
	return nil
}

func (r *streamRegistry) get(id uint32) *Stream {
	i := sort.Search(len(r.list), func(i int) bool { return r.list[i].id >= id })
	if i < len(r.list) && r.list[i].id == id {
		return r.list[i]
	}
	return nil
}

// all returns every live stream in ID order. Callers must not mutate the
// returned slice.
func (r *streamRegistry) all() []*Stream { return r.list }

func (r *streamRegistry) len() int { return len(r.list) }
