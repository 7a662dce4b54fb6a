package amr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRefinedPair builds one refined coarse patch at level 0 with its eight
// sons at level 1, fields allocated on both levels.
func newRefinedPair(t *testing.T) (*Grid, *Patch, []*Patch) {
	t.Helper()
	g := NewGrid(testConfig(), 0)

	father := NewPatch()
	g.AllocField(father)
	father.Son = 0
	require.Equal(t, 0, g.AddReal(0, father))

	sons := make([]*Patch, 8)
	for c := range sons {
		sons[c] = NewPatch()
		sons[c].Father = 0
		g.AllocField(sons[c])
		require.Equal(t, c, g.AddReal(1, sons[c]))
	}
	return g, father, sons
}

func TestRestrictUniformSons(t *testing.T) {
	g, father, sons := newRefinedPair(t)
	var (
		n    = g.PatchSize
		n3   = n * n * n
		half = n / 2
	)
	// Son c uniform at value c: each coarse octant must average to c exactly
	for c, son := range sons {
		for i := 0; i < n3; i++ {
			son.Field[0][i] = float64(c)
		}
	}
	Restrict(g, 0, 0, 0, FieldMask(g.NChan))

	for c := range sons {
		oi, oj, ok := (c&1)*half, (c>>1&1)*half, (c>>2&1)*half
		got := father.Field[0][g.FieldIndex(0, ok, oj, oi)]
		assert.InDelta(t, float64(c), got, 1e-14, "octant of son %d", c)
	}
}

func TestRestrictAveragesCellGroups(t *testing.T) {
	g, father, sons := newRefinedPair(t)
	n := g.PatchSize

	// Son 0 varies along x: fine cell value = i, so coarse cell i averages
	// fine cells 2i and 2i+1 to 2i + 0.5
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				sons[0].Field[0][g.FieldIndex(0, k, j, i)] = float64(i)
			}
		}
	}
	Restrict(g, 0, 0, 0, FieldMask(1))

	for i := 0; i < n/2; i++ {
		got := father.Field[0][g.FieldIndex(0, 0, 0, i)]
		assert.InDelta(t, 2*float64(i)+0.5, got, 1e-14, "coarse cell %d", i)
	}
}

func TestRestrictConservesTotal(t *testing.T) {
	g, _, sons := newRefinedPair(t)
	n3 := g.PatchSize * g.PatchSize * g.PatchSize

	for c, son := range sons {
		for i := 0; i < n3; i++ {
			son.Field[0][i] = 1.0 + 0.25*float64(c)
		}
	}
	Restrict(g, 0, 0, 0, FieldMask(1))

	// The sons cover exactly the father's volume, so restriction preserves
	// the conserved total between the two levels
	assert.InDelta(t, g.ConservedTotal(1, 0, 0), g.ConservedTotal(0, 0, 0), 1e-12)
}

func TestRestrictSkipsLeaves(t *testing.T) {
	g := NewGrid(testConfig(), 0)
	leaf := NewPatch()
	g.AllocField(leaf)
	leaf.Field[0][0] = 3.5
	g.AddReal(0, leaf)

	Restrict(g, 0, 0, 0, FieldMask(g.NChan))
	assert.Equal(t, 3.5, leaf.Field[0][0], "leaf data must be untouched")

	assert.Panics(t, func() { Restrict(g, 1, 0, 0, FieldMask(1)) },
		"no finer level exists above the finest")
	assert.Panics(t, func() { Restrict(g, 0, 2, 0, FieldMask(1)) })
}
