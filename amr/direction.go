// Package amr holds the block-structured adaptive mesh data model: cubic
// patches of cell-centered data organized into refinement levels, the
// 26-direction neighbor enumeration, and the per-level send/receive topology
// consumed by the exchange and fix-up engines.
package amr

import "fmt"

// Direction identifies one of the 26 unit offsets to a neighboring patch.
// Directions 0-5 are the faces (-x,+x,-y,+y,-z,+z), 6-17 the edges and
// 18-25 the corners.
type Direction uint8

const (
	XM Direction = iota // -x
	XP                  // +x
	YM                  // -y
	YP                  // +y
	ZM                  // -z
	ZP                  // +z

	NumFaceDirs = 6
	NumDirs     = 26
)

// dirOffset maps each direction to its per-axis sign.
var dirOffset = [NumDirs][3]int{
	{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1},
	{-1, -1, 0}, {1, -1, 0}, {-1, 1, 0}, {1, 1, 0},
	{0, -1, -1}, {0, 1, -1}, {0, -1, 1}, {0, 1, 1},
	{-1, 0, -1}, {-1, 0, 1}, {1, 0, -1}, {1, 0, 1},
	{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
}

var (
	mirrorDir [NumDirs]Direction
	// pairOrder lists all 26 directions with each direction immediately
	// followed by its mirror, so the exchange engine can process one
	// opposing pair per iteration.
	pairOrder [NumDirs]Direction
)

func init() {
	for d := 0; d < NumDirs; d++ {
		neg := [3]int{-dirOffset[d][0], -dirOffset[d][1], -dirOffset[d][2]}
		found := false
		for m := 0; m < NumDirs; m++ {
			if dirOffset[m] == neg {
				mirrorDir[d] = Direction(m)
				found = true
				break
			}
		}
		if !found {
			panic(fmt.Sprintf("direction %d has no mirror", d))
		}
	}
	var (
		seen [NumDirs]bool
		n    int
	)
	for d := 0; d < NumDirs; d++ {
		if seen[d] {
			continue
		}
		m := mirrorDir[d]
		pairOrder[n] = Direction(d)
		pairOrder[n+1] = m
		seen[d], seen[m] = true, true
		n += 2
	}
}

// Offset returns the unit offset of d on each axis, each in {-1,0,1}.
func (d Direction) Offset() [3]int { return dirOffset[d] }

// Mirror returns the opposite direction.
func (d Direction) Mirror() Direction { return mirrorDir[d] }

// IsFace reports whether d is one of the six face directions.
func (d Direction) IsFace() bool { return d < NumFaceDirs }

// Axis returns the normal axis of a face direction (0,1,2 for x,y,z) and
// whether it points to the high-coordinate side. Panics for non-face
// directions.
func (d Direction) Axis() (axis int, high bool) {
	if !d.IsFace() {
		panic(fmt.Sprintf("direction %d is not a face", d))
	}
	return int(d) / 2, d%2 == 1
}

// Slab returns the shape and in-patch offset of the boundary region a patch
// sends toward d: ghost cells wide on every axis d is active on, the full
// patch size n elsewhere. The receiving side stores the same shape at the
// mirror direction's offset.
func (d Direction) Slab(n, ghost int) (width, disp [3]int) {
	for a := 0; a < 3; a++ {
		switch dirOffset[d][a] {
		case 0:
			width[a] = n
			disp[a] = 0
		case -1:
			width[a] = ghost
			disp[a] = 0
		case 1:
			width[a] = ghost
			disp[a] = n - ghost
		}
	}
	return
}

// PairTraversal returns the fixed direction ordering used by the exchange
// engine: 13 mirror pairs, faces first.
func PairTraversal() [NumDirs]Direction { return pairOrder }

func (d Direction) String() string {
	signs := [3]string{"-", "", "+"}
	s := ""
	for a, ax := range [3]string{"x", "y", "z"} {
		if o := dirOffset[d][a]; o != 0 {
			s += signs[o+1] + ax
		}
	}
	return s
}
