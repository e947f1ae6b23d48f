package modbusgw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/registry"
)

func buildTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(registry.Metadata{Path: "A.analog_1", Kind: registry.KindAnalog, Writable: true}, "A")
	reg.Register(registry.Metadata{Path: "A.binary_1", Kind: registry.KindBinary, Writable: true}, "A")
	reg.Register(registry.Metadata{Path: "A.analog_2", Kind: registry.KindAnalog, Writable: false}, "A")
	reg.Register(registry.Metadata{Path: "A.multistate_1", Kind: registry.KindMultiState, Writable: false}, "A")
	return reg
}

func TestBuildAssignsAnalogsBeforeBinaries(t *testing.T) {
	reg := buildTestRegistry()
	m := Build(reg)

	require.Equal(t, 4, m.Len())

	a1, ok := m.EntryAtStart(0)
	require.True(t, ok)
	assert.Equal(t, "A.analog_1", a1.Path)
	assert.Equal(t, uint16(2), a1.Length)

	a2, ok := m.EntryAtStart(2)
	require.True(t, ok)
	assert.Equal(t, "A.analog_2", a2.Path)

	// Binary/multi-state points follow, path-sorted, after both analogs.
	b1, ok := m.EntryAtStart(4)
	require.True(t, ok)
	assert.Equal(t, "A.binary_1", b1.Path)
	assert.Equal(t, uint16(1), b1.Length)

	ms1, ok := m.EntryAtStart(5)
	require.True(t, ok)
	assert.Equal(t, "A.multistate_1", ms1.Path)
}

func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	reg := buildTestRegistry()
	m1 := Build(reg)
	m2 := Build(reg)

	for addr := uint16(0); addr < uint16(m1.Len()+2); addr++ {
		e1, ok1 := m1.EntryAt(addr)
		e2, ok2 := m2.EntryAt(addr)
		require.Equal(t, ok1, ok2)
		if ok1 {
			assert.Equal(t, e1.Path, e2.Path)
		}
	}
}

func TestEntryAtCoversEveryRegisterOfAMultiRegisterPoint(t *testing.T) {
	reg := buildTestRegistry()
	m := Build(reg)

	e0, ok := m.EntryAt(0)
	require.True(t, ok)
	e1, ok := m.EntryAt(1)
	require.True(t, ok)
	assert.Equal(t, e0.Path, e1.Path, "both registers of a 2-register analog entry should resolve to the same point")
}
