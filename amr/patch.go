package amr

// NoPatch marks an absent father/son/sibling link.
const NoPatch = -1

// NumSlots is the number of buffer slots per double-buffered array. Slots
// are explicit so the caller controls which timestep's data an operation
// reads or writes; nothing here tracks a "current" slot.
const NumSlots = 2

// Patch is one N*N*N block of cell-centered data at a single refinement
// level. Patches are identified by a rank-local index (PID) unique within
// (rank, level). Field and potential data are stored flat per slot; see
// Grid.FieldIndex for the layout.
//
// The eight sons of a refined patch occupy consecutive PIDs starting at
// Son; son c covers the octant (c&1, c>>1&1, c>>2&1) of the father.
type Patch struct {
	Corner  [3]int
	LBIdx   int // space-filling-curve index, stable across ranks
	Father  int
	Son     int // PID of first son, NoPatch for a leaf
	Sibling [26]int

	// Field holds NChan*N^3 values per slot; nil until allocated.
	Field [NumSlots][]float64
	// Pot holds N^3 values per slot; nil unless the run carries a potential.
	Pot [NumSlots][]float64

	// Flux holds one NFlux*N*N accumulator per face direction, non-nil only
	// where that face borders a finer neighbor. Accumulators sum
	// contributions from several fine patches and possibly remote ranks
	// before being consumed once per coarse step.
	Flux [NumFaceDirs][]float64
	// FluxDebug shadows Flux in debug runs so coarse- and fine-side
	// contributions can be cross-checked before consumption.
	FluxDebug [NumFaceDirs][]float64
}

// NewPatch returns a patch with no data arrays and all links cleared.
func NewPatch() *Patch {
	p := &Patch{Father: NoPatch, Son: NoPatch}
	for i := range p.Sibling {
		p.Sibling[i] = NoPatch
	}
	return p
}

// IsLeaf reports whether the patch has no finer sons.
func (p *Patch) IsLeaf() bool { return p.Son == NoPatch }
