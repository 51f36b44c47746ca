package history

import "fmt"

// Status is a point in the recycle status lattice:
//
//	NonRecyclable < MarkedForRecycle < Recycled
//
// The zero value StatusNone only appears on Entries that have not recorded a scan.
type Status int

const (
	StatusNone Status = iota
	NonRecyclable
	MarkedForRecycle
	Recycled
)

var statusNames = map[Status]string{
	StatusNone:       "none",
	NonRecyclable:    "non_recyclable",
	MarkedForRecycle: "marked_for_recycle",
	Recycled:         "recycled",
}

// String returns the wire name of s.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Rank is the position of s in the lattice.
func (s Status) Rank() int {
	return int(s)
}

// MarshalText encodes s by name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// MaxStatus returns the lattice join of a and b.
func MaxStatus(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// StatusFor returns the status a scan implies.
// Non-recyclable scans are always NonRecyclable; otherwise requested is used,
// defaulting to MarkedForRecycle.
func StatusFor(s Scan, requested Status) Status {
	if !s.Recyclable {
		return NonRecyclable
	}
	if requested == StatusNone || requested == NonRecyclable {
		return MarkedForRecycle
	}
	return requested
}
