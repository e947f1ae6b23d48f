package bacnetapdu

import (
	"sort"

	"campussim/internal/registry"
)

// ObjectType mirrors the BACnet object-type enumeration, restricted to
// the three kinds BASim's registry ever needs.
type ObjectType uint32

const (
	ObjectAnalogValue     ObjectType = 2
	ObjectBinaryValue     ObjectType = 5
	ObjectMultiStateValue ObjectType = 19
	ObjectDevice          ObjectType = 8
)

func EncodeObjectID(t ObjectType, instance uint32) uint32 {
	return (uint32(t) << 22) | (instance & 0x3FFFFF)
}

func DecodeObjectID(v uint32) (ObjectType, uint32) {
	return ObjectType(v >> 22), v & 0x3FFFFF
}

// Object is one registry point exposed as a BACnet object. Instance
// numbers are assigned per type in path-sorted order at build time, so
// the object database is stable across runs with identical topology.
type Object struct {
	Type     ObjectType
	Instance uint32
	Path     string
	Kind     registry.Kind
	Units    string
	Writable bool
}

// ObjectDatabase is the static object-identifier -> point mapping built
// once at assembly time (spec.md §4.I/§4.J); concurrent BACnet/IP and
// BACnet/SC requests only read it.
type ObjectDatabase struct {
	byID   map[uint32]*Object
	byPath map[string]*Object
}

// Build constructs the object database from every point currently
// registered. String-kind points have no BACnet object-type analogue
// and are not exposed over either BACnet gateway.
func Build(reg *registry.Registry) *ObjectDatabase {
	entries := reg.Snapshot("")
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	db := &ObjectDatabase{
		byID:   make(map[uint32]*Object),
		byPath: make(map[string]*Object),
	}

	var nextAV, nextBV, nextMV uint32
	for _, e := range entries {
		var t ObjectType
		var instance uint32
		switch e.Value.Metadata.Kind {
		case registry.KindAnalog:
			t, instance = ObjectAnalogValue, nextAV
			nextAV++
		case registry.KindBinary:
			t, instance = ObjectBinaryValue, nextBV
			nextBV++
		case registry.KindMultiState:
			t, instance = ObjectMultiStateValue, nextMV
			nextMV++
		default:
			continue
		}
		obj := &Object{
			Type:     t,
			Instance: instance,
			Path:     e.Path,
			Kind:     e.Value.Metadata.Kind,
			Units:    e.Value.Metadata.Units,
			Writable: e.Value.Metadata.Writable,
		}
		db.byID[EncodeObjectID(t, instance)] = obj
		db.byPath[e.Path] = obj
	}

	return db
}

// Lookup resolves an object type/instance pair to its registry point.
func (db *ObjectDatabase) Lookup(t ObjectType, instance uint32) (*Object, bool) {
	o, ok := db.byID[EncodeObjectID(t, instance)]
	return o, ok
}

// Len returns the number of mapped objects.
func (db *ObjectDatabase) Len() int { return len(db.byID) }
