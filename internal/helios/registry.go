package helios

import (
	"fmt"
	"regexp"
)

// Descriptor is the immutable wire metadata of one device parameter.
type Descriptor struct {
	Name  string
	Key   string // 6 character wire identifier, e.g. "v00102"
	Size  int    // formatting width class
	Count int    // 16 bit registers backing the value
	Kind  Kind
	Enum  *EnumType
}

// Capacity is the byte capacity of the wire field.
func (d Descriptor) Capacity() int {
	return d.Count * 2
}

// Access is the read/write allow-list entry of a parameter. It is kept apart
// from Descriptor because the device firmware does not follow the descriptor
// for several parameters.
type Access uint8

const (
	AccessNone  Access = 0
	AccessRead  Access = 1 << 0
	AccessWrite Access = 1 << 1

	AccessReadWrite = AccessRead | AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read_only"
	case AccessWrite:
		return "write_only"
	case AccessReadWrite:
		return "read_write"
	default:
		return "none"
	}
}

type registryEntry struct {
	desc   Descriptor
	access Access
}

// Registry resolves parameter names to descriptors. It is read-only once built.
type Registry struct {
	entries map[string]registryEntry
	byKey   map[string]string
	order   []string
}

var keyPattern = regexp.MustCompile(`^v\d{5}$`)

// NewRegistry builds a registry from descriptors and an access allow-list.
// Parameters without an access entry are neither readable nor writable.
func NewRegistry(descriptors []Descriptor, access map[string]Access) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]registryEntry, len(descriptors)),
		byKey:   make(map[string]string, len(descriptors)),
		order:   make([]string, 0, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor with key %q has no name", d.Key)
		}
		if !keyPattern.MatchString(d.Key) {
			return nil, fmt.Errorf("parameter %s: malformed key %q", d.Name, d.Key)
		}
		if _, dup := r.entries[d.Name]; dup {
			return nil, fmt.Errorf("parameter %s: duplicate name", d.Name)
		}
		if other, dup := r.byKey[d.Key]; dup {
			return nil, fmt.Errorf("parameter %s: key %s already used by %s", d.Name, d.Key, other)
		}
		// key, '=' and at least one payload byte must fit
		if d.Capacity() < len(d.Key)+2 {
			return nil, fmt.Errorf("parameter %s: %d registers cannot hold a frame", d.Name, d.Count)
		}
		if d.Kind == KindInvalid {
			return nil, fmt.Errorf("parameter %s: no value kind", d.Name)
		}
		if d.Kind == KindEnum && d.Enum == nil {
			return nil, fmt.Errorf("parameter %s: enum without type", d.Name)
		}

		r.entries[d.Name] = registryEntry{desc: d, access: access[d.Name]}
		r.byKey[d.Key] = d.Name
		r.order = append(r.order, d.Name)
	}

	for name := range access {
		if _, ok := r.entries[name]; !ok {
			return nil, fmt.Errorf("access entry for unknown parameter %s", name)
		}
	}

	return r, nil
}

// Descriptor returns the descriptor for name. An unknown name is a programming
// error and yields ErrUnknownParameter.
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return e.desc, nil
}

// NameForKey resolves a wire key back to its parameter name.
func (r *Registry) NameForKey(key string) (string, bool) {
	name, ok := r.byKey[key]
	return name, ok
}

func (r *Registry) Access(name string) Access {
	return r.entries[name].access
}

func (r *Registry) IsReadable(name string) bool {
	return r.entries[name].access&AccessRead != 0
}

func (r *Registry) IsWritable(name string) bool {
	return r.entries[name].access&AccessWrite != 0
}

// Names returns all parameter names in table order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
