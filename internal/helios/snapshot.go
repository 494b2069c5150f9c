package helios

import "time"

// Snapshot maps parameter names to values for one full or partial read. It is
// owned by a single caller and not safe for concurrent use.
type Snapshot struct {
	values   map[string]Value
	statuses map[string]Status
	ReadAt   time.Time
}

// NewSnapshot seeds every registered parameter with the zero value of its kind.
func NewSnapshot(r *Registry) *Snapshot {
	s := &Snapshot{
		values:   make(map[string]Value, r.Len()),
		statuses: make(map[string]Status, r.Len()),
	}
	for _, name := range r.order {
		d := r.entries[name].desc
		s.values[name] = Zero(d.Kind, d.Enum)
	}
	return s
}

func (s *Snapshot) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Status returns the status of the last read of name, if it was read.
func (s *Snapshot) Status(name string) (Status, bool) {
	st, ok := s.statuses[name]
	return st, ok
}

func (s *Snapshot) Set(name string, v Value) {
	s.values[name] = v
}

func (s *Snapshot) setStatus(name string, st Status) {
	s.statuses[name] = st
}

// Values returns a copy of the value map.
func (s *Snapshot) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Summary counts read outcomes of a full read by status.
type Summary map[Status]int

func (s Summary) Good() int {
	return s[Good]
}

func (s Summary) Failed() int {
	n := 0
	for st, c := range s {
		if st != Good {
			n += c
		}
	}
	return n
}
