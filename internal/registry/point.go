package registry

import "time"

// Kind is the wire-neutral type tag of a point's value.
type Kind string

const (
	KindAnalog     Kind = "analog"
	KindBinary     Kind = "binary"
	KindMultiState Kind = "multi_state"
	KindString     Kind = "string"
)

// NumPriorities is the size of the BACnet-style priority array: 16
// slots, lowest index wins.
const NumPriorities = 16

// Metadata is the static, immutable-after-assembly description of a
// point, computed once by the campus assembler.
type Metadata struct {
	Path     string
	Kind     Kind
	Units    string
	Writable bool
	Label    string // human-readable name, e.g. for a controller profile
}

// Slot is one entry in a point's priority array.
type Slot struct {
	Value     float64
	Source    string
	ExpiresAt time.Time // zero value means no expiry
}

func (s Slot) hasExpiry() bool { return !s.ExpiresAt.IsZero() }

// Value is a point's present_value/effective_value reading, returned by
// Read.
type Value struct {
	Effective  float64
	Present    float64
	Overridden bool
	Metadata   Metadata
}
