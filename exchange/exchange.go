package exchange

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/goamr/amr"
	"github.com/notargets/goamr/transport"
	"github.com/notargets/goamr/utils"
)

// Engine moves boundary data for one grid over one communicator. Workers
// bounds the intra-rank parallelism of the pack/unpack loops; zero selects
// utils.DefaultWorkers.
type Engine struct {
	Grid    *amr.Grid
	Comm    transport.Comm
	Log     *zap.Logger
	Workers int
}

func NewEngine(g *amr.Grid, comm transport.Comm, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Grid: g, Comm: comm, Log: log, Workers: utils.DefaultWorkers()}
}

// plan is a request normalized for the packing loops.
type plan struct {
	kind     amr.ListKind
	fluVars  []int // field channel indices, list order = pack order
	fluSlot  int
	pot      bool
	potSlot  int
	fluxVars []int // flux channel indices
	width    int   // slab width per active axis
	faceOnly bool  // six face directions only, one face layer, accumulate
}

// nVarTot is the per-cell value count of a ghost-fill plan.
func (p plan) nVarTot() int {
	n := len(p.fluVars)
	if p.pot {
		n++
	}
	return n
}

func checkSlot(name string, s int) {
	if s < 0 || s >= amr.NumSlots {
		panic(fmt.Sprintf("incorrect parameter %s = %d", name, s))
	}
}

func (e *Engine) checkWidth(w int) {
	if w < 0 || w > e.Grid.PatchSize {
		panic(fmt.Sprintf("incorrect parameter GhostWidth = %d, accepted range = [0 ... %d]",
			w, e.Grid.PatchSize))
	}
}

// makePlan validates req against the grid and normalizes it. Fatal
// parameter errors panic; degenerate-but-legal requests return ok=false
// after a logged warning and the call becomes a no-op.
func (e *Engine) makePlan(req Request) (p plan, ok bool) {
	g := e.Grid
	p.kind = req.kind()
	switch r := req.(type) {
	case GhostFill:
		e.checkWidth(r.GhostWidth)
		if r.Channels.HasPot() && !g.WithPot {
			panic("channel mask selects the potential but the run carries none")
		}
		p.fluVars = r.Channels.FieldIndices(g.NChan)
		p.pot = r.Channels.HasPot()
		if len(p.fluVars) > 0 {
			checkSlot("FieldSlot", r.FieldSlot)
			p.fluSlot = r.FieldSlot
		}
		if p.pot {
			checkSlot("PotSlot", r.PotSlot)
			p.potSlot = r.PotSlot
		}
		p.width = r.GhostWidth
	case PotentialFill:
		if !g.WithPot {
			panic("potential fill requested but the run carries no potential")
		}
		e.checkWidth(r.GhostWidth)
		checkSlot("PotSlot", r.PotSlot)
		p.pot = true
		p.potSlot = r.PotSlot
		p.width = r.GhostWidth
	case RestrictedPull:
		if r.Channels.HasPot() && !g.WithPot {
			panic("channel mask selects the potential but the run carries none")
		}
		p.fluVars = r.Channels.FieldIndices(g.NChan)
		p.pot = r.Channels.HasPot()
		if len(p.fluVars) > 0 {
			checkSlot("FieldSlot", r.FieldSlot)
			p.fluSlot = r.FieldSlot
		}
		if p.pot {
			checkSlot("PotSlot", r.PotSlot)
			p.potSlot = r.PotSlot
		}
		p.width = g.PatchSize // the whole cube travels
	case FluxExchange:
		if !g.WithFlux {
			e.Log.Warn("flux exchange requested but no flux tracking is active; nothing to do")
			return p, false
		}
		p.fluxVars = r.Channels.Indices(g.NFlux)
		p.faceOnly = true
		if len(p.fluxVars) == 0 {
			e.Log.Warn("no targeted flux channel selected; nothing to do",
				zap.String("request", req.String()))
			return p, false
		}
		return p, true
	default:
		panic(fmt.Sprintf("incorrect parameter Request = %T", req))
	}
	if p.nVarTot() == 0 {
		e.Log.Warn("no targeted channel selected; nothing to do",
			zap.String("request", req.String()))
		return p, false
	}
	return p, true
}

// ExchangeBoundaryData fills the ghost regions or flux accumulators of the
// receive-list patches at level lv according to req. Direction pairs are
// processed strictly sequentially; the buffers of one pair are released
// before the next pair allocates, bounding peak memory to a single pair.
func (e *Engine) ExchangeBoundaryData(lv int, req Request) {
	e.Grid.CheckLevel(lv)
	p, ok := e.makePlan(req)
	if !ok {
		return
	}
	var (
		topo   = e.Grid.Levels[lv].Topo
		order  = amr.PairTraversal()
		maxSib = amr.NumDirs
	)
	if p.faceOnly {
		maxSib = amr.NumFaceDirs
	}
	for s := 0; s < maxSib; s += 2 {
		var (
			dirs  = [2]amr.Direction{order[s], order[s+1]}
			peers [2]int
			lists [2]amr.PairList
			send  [2][]float64
			want  [2]int
		)
		perPatch := e.perPatchSize(p, dirs[0])
		for t := 0; t < 2; t++ {
			peers[t] = topo.SibRank(dirs[t])
			if peers[t] < 0 {
				continue // domain edge, side inactive
			}
			lists[t] = topo.List(p.kind, dirs[t])
			send[t] = make([]float64, len(lists[t].SendPID)*perPatch)
			want[t] = len(lists[t].RecvPID) * perPatch
			e.packSide(lv, p, dirs[t], lists[t].SendPID, perPatch, send[t])
		}

		recv, err := e.Comm.ExchangeData(peers, send, want)
		if err != nil {
			panic(fmt.Sprintf("exchange failed at lv %d, directions (%s,%s): %v",
				lv, dirs[0], dirs[1], err))
		}

		for t := 0; t < 2; t++ {
			if peers[t] < 0 {
				continue
			}
			e.unpackSide(lv, p, dirs[t], lists[t].RecvPID, perPatch, recv[t])
		}
		// send/recv drop out of scope here; nothing from this pair
		// survives into the next one.
	}
}

// perPatchSize returns the packed value count contributed by one patch.
func (e *Engine) perPatchSize(p plan, d amr.Direction) int {
	n := e.Grid.PatchSize
	if p.faceOnly {
		return n * n * len(p.fluxVars)
	}
	w, _ := d.Slab(n, p.width)
	return w[0] * w[1] * w[2] * p.nVarTot()
}

// packSide fills buf with the boundary regions (or face fluxes) of every
// patch in pids, in list order. Patches are packed independently into
// disjoint buffer segments, so the loop parallelizes over list entries.
func (e *Engine) packSide(lv int, p plan, d amr.Direction, pids []int, perPatch int, buf []float64) {
	var (
		g       = e.Grid
		l       = g.Levels[lv]
		w, disp = d.Slab(g.PatchSize, p.width)
		mir     = d.Mirror()
	)
	utils.RunParallel(e.Workers, len(pids), func(kMin, kMax int) {
		for tid := kMin; tid < kMax; tid++ {
			var (
				patch = l.Patches[pids[tid]]
				out   = buf[tid*perPatch : (tid+1)*perPatch]
			)
			if p.faceOnly {
				e.packFlux(patch, p, mir, out)
			} else {
				e.packRegion(patch, p, w, disp, out)
			}
		}
	})
}

// unpackSide writes recv into the patches of pids in the same order the
// opposite rank packed them. Ghost fills land at the mirror direction's
// offset and overwrite; flux exchanges accumulate into the direction's own
// face.
func (e *Engine) unpackSide(lv int, p plan, d amr.Direction, pids []int, perPatch int, recv []float64) {
	var (
		g       = e.Grid
		l       = g.Levels[lv]
		w, disp = d.Mirror().Slab(g.PatchSize, p.width)
	)
	utils.RunParallel(e.Workers, len(pids), func(kMin, kMax int) {
		for tid := kMin; tid < kMax; tid++ {
			var (
				patch = l.Patches[pids[tid]]
				in    = recv[tid*perPatch : (tid+1)*perPatch]
			)
			if p.faceOnly {
				e.unpackFlux(patch, p, d, in)
			} else {
				e.unpackRegion(patch, p, w, disp, in)
			}
		}
	})
}

// packRegion copies the slab (w, disp) of one patch into out, iterating
// channel, then k, j, i; rows along i are contiguous in both layouts.
func (e *Engine) packRegion(patch *amr.Patch, p plan, w, disp [3]int, out []float64) {
	var (
		g = e.Grid
		c int
	)
	if len(p.fluVars) > 0 {
		f := patch.Field[p.fluSlot]
		for _, v := range p.fluVars {
			for k := disp[2]; k < disp[2]+w[2]; k++ {
				for j := disp[1]; j < disp[1]+w[1]; j++ {
					row := g.FieldIndex(v, k, j, disp[0])
					c += copy(out[c:c+w[0]], f[row:row+w[0]])
				}
			}
		}
	}
	if p.pot {
		pot := patch.Pot[p.potSlot]
		for k := disp[2]; k < disp[2]+w[2]; k++ {
			for j := disp[1]; j < disp[1]+w[1]; j++ {
				row := g.PotIndex(k, j, disp[0])
				c += copy(out[c:c+w[0]], pot[row:row+w[0]])
			}
		}
	}
}

func (e *Engine) unpackRegion(patch *amr.Patch, p plan, w, disp [3]int, in []float64) {
	var (
		g = e.Grid
		c int
	)
	if len(p.fluVars) > 0 {
		f := patch.Field[p.fluSlot]
		for _, v := range p.fluVars {
			for k := disp[2]; k < disp[2]+w[2]; k++ {
				for j := disp[1]; j < disp[1]+w[1]; j++ {
					row := g.FieldIndex(v, k, j, disp[0])
					c += copy(f[row:row+w[0]], in[c:c+w[0]])
				}
			}
		}
	}
	if p.pot {
		pot := patch.Pot[p.potSlot]
		for k := disp[2]; k < disp[2]+w[2]; k++ {
			for j := disp[1]; j < disp[1]+w[1]; j++ {
				row := g.PotIndex(k, j, disp[0])
				c += copy(pot[row:row+w[0]], in[c:c+w[0]])
			}
		}
	}
}

// packFlux copies the selected channels of the accumulator on face mir of
// one fine-side patch. The fine side stores the flux on the face pointing
// back at the coarse neighbor, hence the mirror.
func (e *Engine) packFlux(patch *amr.Patch, p plan, mir amr.Direction, out []float64) {
	var (
		n2 = e.Grid.PatchSize * e.Grid.PatchSize
		fp = patch.Flux[mir]
		c  int
	)
	if fp == nil {
		panic(fmt.Sprintf("send-list patch has no flux accumulator on face %s", mir))
	}
	for _, v := range p.fluxVars {
		c += copy(out[c:c+n2], fp[v*n2:(v+1)*n2])
	}
}

// unpackFlux adds the received fine-side contributions into the coarse
// patch's accumulator on face d; several fine contributors may target one
// coarse face, so flux unpacking always accumulates.
func (e *Engine) unpackFlux(patch *amr.Patch, p plan, d amr.Direction, in []float64) {
	var (
		n2 = e.Grid.PatchSize * e.Grid.PatchSize
		fp = patch.Flux[d]
		c  int
	)
	if fp == nil {
		panic(fmt.Sprintf("receive-list patch has no flux accumulator on face %s", d))
	}
	for _, v := range p.fluxVars {
		floats.Add(fp[v*n2:(v+1)*n2], in[c:c+n2])
		c += n2
	}
}
