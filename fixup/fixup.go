// Package fixup corrects the coarse solution with the accumulated
// coarse-fine boundary fluxes so conservation holds across refinement and
// rank boundaries, then restricts the fine solution onto the coarse level.
// The flux exchange must already have merged remote contributions into the
// same accumulators as local ones; that precondition is the caller's, not
// checked here.
package fixup

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/goamr/amr"
	"github.com/notargets/goamr/utils"
)

// Options toggles the two fix-up phases and the channel-specific correction
// policies. Channel indices refer to the grid's field layout.
type Options struct {
	CorrectFlux bool
	Restrict    bool

	// PositiveDensity rejects a correction that would drive DensityChannel
	// non-positive, keeping the pre-correction value instead.
	PositiveDensity bool
	DensityChannel  int

	// RescaleAmplitude rescales the two amplitude channels so their squared
	// magnitude matches the freshly corrected DensityChannel; when both the
	// corrected and recomputed magnitudes are non-positive the amplitude is
	// zeroed instead of dividing by zero.
	RescaleAmplitude  bool
	AmplitudeChannels [2]int

	// PressureFloor > 0 recomputes EnergyChannel from the corrected
	// primaries whenever the derived pressure would fall below the floor.
	PressureFloor    float64
	Gamma            float64
	EnergyChannel    int
	MomentumChannels [3]int

	// Workers bounds the intra-rank parallelism; zero selects
	// utils.DefaultWorkers.
	Workers int
}

// HydroOptions returns the usual policy set for a five-channel
// density/momentum/energy model.
func HydroOptions() Options {
	return Options{
		CorrectFlux:      true,
		Restrict:         true,
		PositiveDensity:  true,
		DensityChannel:   0,
		MomentumChannels: [3]int{1, 2, 3},
		EnergyChannel:    4,
		Gamma:            5.0 / 3.0,
	}
}

// WaveOptions returns the policy set for a three-channel
// density/real/imaginary amplitude model with mass conservation.
func WaveOptions() Options {
	return Options{
		CorrectFlux:       true,
		Restrict:          true,
		RescaleAmplitude:  true,
		DensityChannel:    0,
		AmplitudeChannels: [2]int{1, 2},
	}
}

// Engine applies the fix-up to one grid.
type Engine struct {
	Grid *amr.Grid
	Log  *zap.Logger
	Opt  Options
}

func NewEngine(g *amr.Grid, opt Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Grid: g, Log: log, Opt: opt}
}

// FixUp corrects the boundary cells of every leaf patch at level lv with its
// accumulated face fluxes scaled by dt, consumes and zeroes the accumulators
// of all patches at the level, and restricts level lv+1 onto lv. Either
// phase can be disabled; with both disabled the call is a no-op.
func (e *Engine) FixUp(lv int, dt float64) {
	g := e.Grid
	g.CheckLevel(lv)
	if !e.Opt.CorrectFlux && !e.Opt.Restrict {
		return
	}

	if e.Opt.CorrectFlux {
		if !g.WithFlux {
			e.Log.Warn("flux correction requested but no flux tracking is active; skipping",
				zap.Int("lv", lv))
		} else {
			if g.Debug {
				e.checkStructure()
			}
			e.correctLevel(lv, dt)
			e.resetLevel(lv)
		}
	}

	if e.Opt.Restrict && lv < g.NLevel-1 {
		amr.Restrict(g, lv, g.FieldSlot[lv+1], g.FieldSlot[lv], amr.FieldMask(g.NChan))
	}
}

// checkStructure is the debug-build compatibility check between the flux
// layout and the active correction policies.
func (e *Engine) checkStructure() {
	var (
		g   = e.Grid
		opt = e.Opt
	)
	if opt.DensityChannel < 0 || opt.DensityChannel >= g.NFlux {
		panic(fmt.Sprintf("incorrect parameter DensityChannel = %d, flux channels are [0 ... %d]",
			opt.DensityChannel, g.NFlux-1))
	}
	if opt.RescaleAmplitude {
		for _, ch := range opt.AmplitudeChannels {
			if ch < 0 || ch >= g.NChan {
				panic(fmt.Sprintf("incorrect parameter AmplitudeChannels = %v", opt.AmplitudeChannels))
			}
		}
	}
	if opt.PressureFloor > 0 {
		if opt.Gamma <= 1 {
			panic(fmt.Sprintf("incorrect parameter Gamma = %g", opt.Gamma))
		}
		if opt.EnergyChannel < 0 || opt.EnergyChannel >= g.NChan {
			panic(fmt.Sprintf("incorrect parameter EnergyChannel = %d", opt.EnergyChannel))
		}
	}
}

// correctLevel applies the per-face corrections to every real leaf patch.
// Faces and cells are disjoint per patch, so the loop parallelizes over
// patches.
func (e *Engine) correctLevel(lv int, dt float64) {
	var (
		g    = e.Grid
		l    = g.Levels[lv]
		conv = dt / g.CellWidth(lv)
		slot = g.FieldSlot[lv]
	)
	utils.RunParallel(e.Opt.Workers, l.NReal, func(kMin, kMax int) {
		for pid := kMin; pid < kMax; pid++ {
			p := l.Patches[pid]
			if !p.IsLeaf() {
				continue // accumulators live on the coarse side of a coarse-fine face
			}
			if g.Debug {
				// Fold the shadow accumulators in before consumption so the
				// coarse- and fine-side sums are checked together.
				for s := 0; s < amr.NumFaceDirs; s++ {
					if p.Flux[s] != nil && p.FluxDebug[s] != nil {
						floats.Add(p.Flux[s], p.FluxDebug[s])
					}
				}
			}
			for face := 0; face < amr.NumFaceDirs; face++ {
				if p.Flux[face] != nil {
					e.correctFace(p, face, slot, conv)
				}
			}
		}
	})
}

// cellIndex addresses the boundary cell (a,b,edge) of channel v, where a,b
// run over the two axes tangent to the face in descending axis order and
// edge is the boundary layer on the face's normal axis.
func (e *Engine) cellIndex(axis, v, a, b, edge int) int {
	switch axis {
	case 0:
		return e.Grid.FieldIndex(v, a, b, edge)
	case 1:
		return e.Grid.FieldIndex(v, a, edge, b)
	default:
		return e.Grid.FieldIndex(v, edge, a, b)
	}
}

// correctFace corrects the single boundary cell layer adjacent to one face:
// corrected = old -/+ flux*dt/dh, subtracting on the low face and adding on
// the high face per the outward-flux sign convention.
func (e *Engine) correctFace(p *amr.Patch, face, slot int, conv float64) {
	var (
		g          = e.Grid
		opt        = e.Opt
		n          = g.PatchSize
		axis, high = amr.Direction(face).Axis()
		edge       = 0
		sign       = -1.0
		f          = p.Field[slot]
		fp         = p.Flux[face]
	)
	if high {
		edge = n - 1
		sign = 1.0
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for v := 0; v < g.NFlux; v++ {
				idx := e.cellIndex(axis, v, a, b, edge)
				corr := f[idx] + sign*fp[g.FaceIndex(v, a, b)]*conv
				if opt.PositiveDensity && v == opt.DensityChannel && corr <= 0 {
					continue // keep the pre-correction value
				}
				f[idx] = corr
			}
			if opt.RescaleAmplitude {
				e.rescaleAmplitude(f, axis, a, b, edge)
			}
			if opt.PressureFloor > 0 {
				e.applyPressureFloor(f, axis, a, b, edge)
			}
		}
	}
}

// rescaleAmplitude makes the amplitude pair consistent with the corrected
// density-like channel. Round-off can leave either magnitude non-positive;
// both degenerate cases zero the cell instead of producing NaN.
func (e *Engine) rescaleAmplitude(f []float64, axis, a, b, edge int) {
	var (
		opt     = e.Opt
		densIdx = e.cellIndex(axis, opt.DensityChannel, a, b, edge)
		reIdx   = e.cellIndex(axis, opt.AmplitudeChannels[0], a, b, edge)
		imIdx   = e.cellIndex(axis, opt.AmplitudeChannels[1], a, b, edge)

		re       = f[reIdx]
		im       = f[imIdx]
		rhoCorr  = f[densIdx]
		rhoWrong = re*re + im*im
		rescale  float64
	)
	if rhoWrong <= 0 || rhoCorr <= 0 {
		f[densIdx] = 0
		rescale = 0
	} else {
		rescale = math.Sqrt(rhoCorr / rhoWrong)
	}
	f[reIdx] *= rescale
	f[imIdx] *= rescale
}

// applyPressureFloor recomputes the total energy of one corrected cell when
// its derived pressure would fall below the floor.
func (e *Engine) applyPressureFloor(f []float64, axis, a, b, edge int) {
	var (
		opt  = e.Opt
		dens = f[e.cellIndex(axis, opt.DensityChannel, a, b, edge)]
	)
	if dens <= 0 {
		return
	}
	var ke float64
	for _, ch := range opt.MomentumChannels {
		m := f[e.cellIndex(axis, ch, a, b, edge)]
		ke += m * m
	}
	ke *= 0.5 / dens
	var (
		gm1   = opt.Gamma - 1
		enIdx = e.cellIndex(axis, opt.EnergyChannel, a, b, edge)
		pres  = (f[enIdx] - ke) * gm1
	)
	if pres < opt.PressureFloor {
		f[enIdx] = opt.PressureFloor/gm1 + ke
	}
}

// resetLevel zeroes every consumed accumulator (and any debug shadow) on
// all patches at the level, real and buffer, so the next accumulation
// window starts clean.
func (e *Engine) resetLevel(lv int) {
	l := e.Grid.Levels[lv]
	utils.RunParallel(e.Opt.Workers, l.NTotal(), func(kMin, kMax int) {
		for pid := kMin; pid < kMax; pid++ {
			p := l.Patches[pid]
			for s := 0; s < amr.NumFaceDirs; s++ {
				if p.Flux[s] != nil {
					clear(p.Flux[s])
				}
				if p.FluxDebug[s] != nil {
					clear(p.FluxDebug[s])
				}
			}
		}
	})
}
