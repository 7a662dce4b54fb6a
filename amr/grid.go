package amr

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Config fixes the shape parameters of a run. All patches share one patch
// size and channel count; refinement halves the cell width per level.
type Config struct {
	PatchSize  int     // N, cells per patch edge
	NChan      int     // field channels per cell
	NFlux      int     // flux channels per face cell, <= NChan
	NLevel     int     // number of refinement levels
	CellWidth0 float64 // cell width at level 0
	WithFlux   bool    // coarse-fine flux accumulators active
	WithPot    bool    // scalar potential field active
	Debug      bool    // extra structural assertions
}

// Validate panics on an inconsistent configuration.
func (c Config) Validate() {
	if c.PatchSize < 2 || c.PatchSize%2 != 0 {
		panic(fmt.Sprintf("incorrect parameter PatchSize = %d, must be even and positive", c.PatchSize))
	}
	if c.NChan < 1 {
		panic(fmt.Sprintf("incorrect parameter NChan = %d", c.NChan))
	}
	if c.NFlux < 0 || c.NFlux > c.NChan {
		panic(fmt.Sprintf("incorrect parameter NFlux = %d, accepted range = [0 ... NChan]", c.NFlux))
	}
	if c.NLevel < 1 {
		panic(fmt.Sprintf("incorrect parameter NLevel = %d", c.NLevel))
	}
	if c.CellWidth0 <= 0 {
		panic(fmt.Sprintf("incorrect parameter CellWidth0 = %g", c.CellWidth0))
	}
}

// Level holds the patches of one refinement level. Real patches (owned and
// computed locally) occupy PIDs [0, NReal); buffer patches, which mirror the
// boundary state of remotely owned patches, follow.
type Level struct {
	Patches []*Patch
	NReal   int
	Topo    *Topology
}

// NTotal returns the real plus buffer patch count.
func (l *Level) NTotal() int { return len(l.Patches) }

/// Grid is the explicit context threaded through every engine: configuration,
// the local rank, and the per-level patch arenas. Patches are addressed by
// (level, PID), never by live pointer across calls.
type Grid struct {
	Config
	Rank   int
	Levels []*Level

	// FieldSlot and PotSlot record the slot holding the current solution per
	// level, consumed by the fix-up engine; the exchange engine always takes
	// slots explicitly.
	FieldSlot []int
	PotSlot   []int
}

// NewGrid builds an empty grid for the given configuration.
func NewGrid(cfg Config, rank int) *Grid {
	cfg.Validate()
	g := &Grid{
		Config:    cfg,
		Rank:      rank,
		Levels:    make([]*Level, cfg.NLevel),
		FieldSlot: make([]int, cfg.NLevel),
		PotSlot:   make([]int, cfg.NLevel),
	}
	for lv := range g.Levels {
		g.Levels[lv] = &Level{Topo: NewTopology()}
	}
	return g
}

// CellWidth returns the cell width at level lv.
func (g *Grid) CellWidth(lv int) float64 {
	return g.CellWidth0 / float64(int(1)<<uint(lv))
}

// CheckLevel panics when lv is outside the configured level range.
func (g *Grid) CheckLevel(lv int) {
	if lv < 0 || lv >= g.NLevel {
		panic(fmt.Sprintf("incorrect parameter lv = %d, accepted range = [0 ... %d]", lv, g.NLevel-1))
	}
}

// Patch returns the patch at (lv, pid).
func (g *Grid) Patch(lv, pid int) *Patch { return g.Levels[lv].Patches[pid] }

// FieldIndex returns the flat index of channel v, cell (k,j,i); i varies
// fastest so a fixed (v,k,j) row is contiguous.
func (g *Grid) FieldIndex(v, k, j, i int) int {
	n := g.PatchSize
	return ((v*n+k)*n+j)*n + i
}

// PotIndex returns the flat index of cell (k,j,i) in a potential array.
func (g *Grid) PotIndex(k, j, i int) int {
	n := g.PatchSize
	return (k*n+j)*n + i
}

// FaceIndex returns the flat index of flux channel v, face cell (m,n) in a
// face accumulator; the two face coordinates follow the same descending axis
// order as the field layout.
func (g *Grid) FaceIndex(v, m, nn int) int {
	n := g.PatchSize
	return (v*n+m)*n + nn
}

// AllocField allocates both field slots (and potential slots when active)
// of p.
func (g *Grid) AllocField(p *Patch) {
	n3 := g.PatchSize * g.PatchSize * g.PatchSize
	for s := 0; s < NumSlots; s++ {
		p.Field[s] = make([]float64, g.NChan*n3)
		if g.WithPot {
			p.Pot[s] = make([]float64, n3)
		}
	}
}

// AllocFlux allocates the accumulator on face direction d of p, plus the
// debug shadow when debug assertions are active.
func (g *Grid) AllocFlux(p *Patch, d Direction) {
	if !d.IsFace() {
		panic(fmt.Sprintf("incorrect parameter d = %d, flux faces are [0 ... 5]", d))
	}
	n2 := g.PatchSize * g.PatchSize
	p.Flux[d] = make([]float64, g.NFlux*n2)
	if g.Debug {
		p.FluxDebug[d] = make([]float64, g.NFlux*n2)
	}
}

// AddReal appends a real patch to level lv and returns its PID. Real patches
// must be added before buffer patches.
func (g *Grid) AddReal(lv int, p *Patch) int {
	l := g.Levels[lv]
	if l.NReal != len(l.Patches) {
		panic("real patches must precede buffer patches")
	}
	l.Patches = append(l.Patches, p)
	l.NReal++
	return l.NReal - 1
}

// AddBuffer appends a buffer patch to level lv and returns its PID.
func (g *Grid) AddBuffer(lv int, p *Patch) int {
	l := g.Levels[lv]
	l.Patches = append(l.Patches, p)
	return len(l.Patches) - 1
}

// ConservedTotal sums value*cellVolume of channel ch over the real patches
// of level lv, skipping patches without field data. Combined with the same
// sum over a finer level it checks conservation across a fix-up cycle.
func (g *Grid) ConservedTotal(lv, slot, ch int) float64 {
	g.CheckLevel(lv)
	var (
		n3  = g.PatchSize * g.PatchSize * g.PatchSize
		dh  = g.CellWidth(lv)
		vol = dh * dh * dh
		l   = g.Levels[lv]
		sum float64
	)
	for pid := 0; pid < l.NReal; pid++ {
		f := l.Patches[pid].Field[slot]
		if f == nil {
			continue
		}
		sum += floats.Sum(f[ch*n3 : (ch+1)*n3])
	}
	return sum * vol
}
