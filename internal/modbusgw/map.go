// Package modbusgw implements the Modbus/TCP gateway: a static
// register map built from registry metadata at assembly time, and a
// TCP server answering function codes 03/04/06/16 against it, per
// spec.md §4.H. Grounded on the point-definition/register-map shape in
// the pack's modbus-go-poller and mutil-modbus reference tools, which
// likewise hand-roll the wire codec over the standard library rather
// than pulling in a third-party Modbus stack.
package modbusgw

import (
	"sort"

	"campussim/internal/registry"
)

// RegisterEntry is one point's slice of the Modbus register address
// space: analog points occupy two consecutive holding registers (a
// big-endian float32), binary and multi-state points occupy one.
type RegisterEntry struct {
	Path    string
	Kind    registry.Kind
	Start   uint16
	Length  uint16
}

// RegisterMap is the static register_index -> point_path mapping,
// generated once at assembler time (spec.md §4.H) and never mutated
// after; concurrent Modbus requests only read it.
type RegisterMap struct {
	entries []RegisterEntry
	byStart map[uint16]*RegisterEntry
	byReg   map[uint16]*RegisterEntry // every register address covered by some entry
}

// Build assigns register addresses to every point in reg, analog points
// first (so their two-register entries never straddle a boundary
// oddly), then binary/multi-state points, in path-sorted order for
// determinism across runs with identical topology.
func Build(reg *registry.Registry) *RegisterMap {
	entries := reg.Snapshot("")
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	m := &RegisterMap{
		byStart: make(map[uint16]*RegisterEntry),
		byReg:   make(map[uint16]*RegisterEntry),
	}

	var next uint16
	assign := func(kind registry.Kind, path string) {
		length := uint16(1)
		if kind == registry.KindAnalog {
			length = 2
		}
		e := RegisterEntry{Path: path, Kind: kind, Start: next, Length: length}
		m.entries = append(m.entries, e)
		ref := &m.entries[len(m.entries)-1]
		m.byStart[e.Start] = ref
		for i := uint16(0); i < length; i++ {
			m.byReg[e.Start+i] = ref
		}
		next += length
	}

	for _, e := range entries {
		if e.Value.Metadata.Kind == registry.KindAnalog {
			assign(registry.KindAnalog, e.Path)
		}
	}
	for _, e := range entries {
		if e.Value.Metadata.Kind != registry.KindAnalog {
			assign(e.Value.Metadata.Kind, e.Path)
		}
	}

	return m
}

// EntryAt returns the entry covering register addr, if any.
func (m *RegisterMap) EntryAt(addr uint16) (*RegisterEntry, bool) {
	e, ok := m.byReg[addr]
	return e, ok
}

// EntryAtStart returns the entry whose first register is exactly addr.
func (m *RegisterMap) EntryAtStart(addr uint16) (*RegisterEntry, bool) {
	e, ok := m.byStart[addr]
	return e, ok
}

// Len returns the number of mapped points.
func (m *RegisterMap) Len() int { return len(m.entries) }
