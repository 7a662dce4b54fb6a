package amr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		PatchSize:  4,
		NChan:      3,
		NFlux:      1,
		NLevel:     2,
		CellWidth0: 0.5,
		WithFlux:   true,
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NotPanics(t, func() { testConfig().Validate() })

	bad := testConfig()
	bad.PatchSize = 5 // restriction needs an even edge
	assert.Panics(t, func() { bad.Validate() })

	bad = testConfig()
	bad.NFlux = 4 // more flux channels than field channels
	assert.Panics(t, func() { bad.Validate() })

	bad = testConfig()
	bad.CellWidth0 = 0
	assert.Panics(t, func() { bad.Validate() })
}

func TestFieldIndexLayout(t *testing.T) {
	g := NewGrid(testConfig(), 0)

	// i varies fastest; each (v,k,j) row is contiguous
	assert.Equal(t, 0, g.FieldIndex(0, 0, 0, 0))
	assert.Equal(t, 1, g.FieldIndex(0, 0, 0, 1))
	assert.Equal(t, 4, g.FieldIndex(0, 0, 1, 0))
	assert.Equal(t, 16, g.FieldIndex(0, 1, 0, 0))
	assert.Equal(t, 64, g.FieldIndex(1, 0, 0, 0))
	assert.Equal(t, 16, g.PotIndex(1, 0, 0))
	assert.Equal(t, 4*4, g.FaceIndex(1, 0, 0))
}

func TestCellWidthHalvesPerLevel(t *testing.T) {
	g := NewGrid(testConfig(), 0)
	assert.Equal(t, 0.5, g.CellWidth(0))
	assert.Equal(t, 0.25, g.CellWidth(1))
	assert.Panics(t, func() { g.CheckLevel(2) })
	assert.Panics(t, func() { g.CheckLevel(-1) })
}

func TestPatchAllocation(t *testing.T) {
	var (
		g = NewGrid(testConfig(), 0)
		p = NewPatch()
	)
	require.True(t, p.IsLeaf())
	assert.Equal(t, NoPatch, p.Father)
	for _, s := range p.Sibling {
		assert.Equal(t, NoPatch, s)
	}

	g.AllocField(p)
	assert.Len(t, p.Field[0], 3*64)
	assert.Len(t, p.Field[1], 3*64)
	assert.Nil(t, p.Pot[0], "no potential configured")

	g.AllocFlux(p, XP)
	assert.Len(t, p.Flux[XP], 16)
	assert.Nil(t, p.FluxDebug[XP], "no debug shadow outside debug runs")
	assert.Panics(t, func() { g.AllocFlux(p, Direction(7)) })
}

func TestRealBufferPartition(t *testing.T) {
	g := NewGrid(testConfig(), 0)
	require.Equal(t, 0, g.AddReal(0, NewPatch()))
	require.Equal(t, 1, g.AddReal(0, NewPatch()))
	require.Equal(t, 2, g.AddBuffer(0, NewPatch()))
	assert.Equal(t, 2, g.Levels[0].NReal)
	assert.Equal(t, 3, g.Levels[0].NTotal())
	assert.Panics(t, func() { g.AddReal(0, NewPatch()) },
		"real patches must precede buffer patches")
}

func TestConservedTotal(t *testing.T) {
	var (
		g = NewGrid(testConfig(), 0)
		p = NewPatch()
	)
	g.AllocField(p)
	for c := 0; c < 64; c++ {
		p.Field[0][c] = 2.0 // channel 0 uniform
	}
	g.AddReal(0, p)
	// A buffer mirror holds no independent truth and must not count
	b := NewPatch()
	g.AllocField(b)
	for c := 0; c < 64; c++ {
		b.Field[0][c] = 7.0
	}
	g.AddBuffer(0, b)

	vol := 0.5 * 0.5 * 0.5
	assert.InDelta(t, 2.0*64*vol, g.ConservedTotal(0, 0, 0), 1e-12)
	assert.Zero(t, g.ConservedTotal(0, 1, 0), "slot 1 never written")
}
