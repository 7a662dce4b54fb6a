package amr

import "fmt"

// Restrict overwrites the selected channels of every refined real patch at
// level lv with the volume-weighted average of its eight sons at lv+1,
// reading the fine data from fineSlot and writing the coarse data to
// coarseSlot. With a refinement ratio of two the volume weights are uniform,
// so each coarse cell becomes the mean of its 2x2x2 fine cells. Wherever a
// finer patch exists the finer answer wins.
func Restrict(g *Grid, lv, fineSlot, coarseSlot int, vars ChannelMask) {
	g.CheckLevel(lv)
	if lv == g.NLevel-1 {
		panic(fmt.Sprintf("incorrect parameter lv = %d, no finer level exists", lv))
	}
	if fineSlot < 0 || fineSlot >= NumSlots {
		panic(fmt.Sprintf("incorrect parameter fineSlot = %d", fineSlot))
	}
	if coarseSlot < 0 || coarseSlot >= NumSlots {
		panic(fmt.Sprintf("incorrect parameter coarseSlot = %d", coarseSlot))
	}

	var (
		n      = g.PatchSize
		half   = n / 2
		coarse = g.Levels[lv]
		fine   = g.Levels[lv+1]
		chans  = vars.FieldIndices(g.NChan)
		doPot  = vars.HasPot() && g.WithPot
	)
	for pid := 0; pid < coarse.NReal; pid++ {
		p := coarse.Patches[pid]
		if p.IsLeaf() || p.Field[coarseSlot] == nil {
			continue
		}
		for c := 0; c < 8; c++ {
			son := fine.Patches[p.Son+c]
			// Octant covered by son c within the father.
			oi, oj, ok := (c&1)*half, (c>>1&1)*half, (c>>2&1)*half

			for _, v := range chans {
				restrictOctant(g, son.Field[fineSlot], p.Field[coarseSlot],
					g.FieldIndex(v, 0, 0, 0), g.FieldIndex(v, ok, oj, oi), half)
			}
			if doPot {
				restrictOctant(g, son.Pot[fineSlot], p.Pot[coarseSlot],
					0, g.PotIndex(ok, oj, oi), half)
			}
		}
	}
}

// restrictOctant averages one son's 2x2x2 cell groups into a half-size
// octant of the father array. fineBase/coarseBase address the channel origin
// of each array.
func restrictOctant(g *Grid, fineArr, coarseArr []float64, fineBase, coarseBase, half int) {
	n := g.PatchSize
	for k := 0; k < half; k++ {
		for j := 0; j < half; j++ {
			for i := 0; i < half; i++ {
				var sum float64
				for dk := 0; dk < 2; dk++ {
					for dj := 0; dj < 2; dj++ {
						row := fineBase + ((2*k+dk)*n+2*j+dj)*n + 2*i
						sum += fineArr[row] + fineArr[row+1]
					}
				}
				coarseArr[coarseBase+(k*n+j)*n+i] = sum * 0.125
			}
		}
	}
}
