/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/goamr/InputParameters"
	"github.com/notargets/goamr/amr"
	"github.com/notargets/goamr/exchange"
	"github.com/notargets/goamr/fixup"
	"github.com/notargets/goamr/transport"
)

// pairCmd runs a two-rank demonstration over the in-process pipe
// communicator: ghost fill of a shared face, a cross-rank flux exchange,
// and the fix-up it enables, printing conserved totals along the way.
var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Two-rank boundary exchange and fix-up demonstration",
	Long: `
Runs two in-process ranks, each owning one patch of a level-0 pair sharing
one face: fills ghost data across the rank boundary, exchanges coarse-fine
boundary fluxes, and applies the conservation fix-up.

goamr pair`,
	Run: func(cmd *cobra.Command, args []string) {
		sp := InputParameters.Defaults()
		if pfile, _ := cmd.Flags().GetString("paramFile"); pfile != "" {
			data, err := ioutil.ReadFile(pfile)
			if err != nil {
				panic(fmt.Sprintf("unable to read parameter file: %v", err))
			}
			if err = sp.Parse(data); err != nil {
				panic(fmt.Sprintf("unable to parse parameter file: %v", err))
			}
		}
		if err := sp.Validate(); err != nil {
			panic(fmt.Sprintf("incorrect parameter file: %v", err))
		}
		sp.Print()
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start().Stop()
		}
		RunPair(sp)
	},
}

func init() {
	rootCmd.AddCommand(pairCmd)
	pairCmd.Flags().StringP("paramFile", "I", "", "YAML parameter file for the run")
	pairCmd.Flags().Bool("profile", false, "generate a CPU profile of the run")
}

// RunPair drives both ranks of the demonstration on goroutines joined by an
// errgroup; each rank owns its own grid and engines, sharing only the pipe.
func RunPair(sp *InputParameters.SyncParameters) {
	log, _ := zap.NewDevelopment()
	defer log.Sync()

	c0, c1 := transport.NewPipeComm()
	var eg errgroup.Group
	for _, comm := range []transport.Comm{c0, c1} {
		comm := comm
		eg.Go(func() error { return runRank(sp, comm, log) })
	}
	if err := eg.Wait(); err != nil {
		log.Fatal("pair run failed", zap.Error(err))
	}
}

// runRank builds one rank's half of the shared-face pair and runs one
// exchange/fix-up cycle. Rank 0 owns the low-x patch and the coarse side of
// the flux interface; rank 1 owns the high-x patch and the fine side.
func runRank(sp *InputParameters.SyncParameters, comm transport.Comm, log *zap.Logger) error {
	var (
		rank = comm.Rank()
		cfg  = amr.Config{
			PatchSize:  sp.PatchSize,
			NChan:      sp.Channels,
			NFlux:      sp.FluxChannels,
			NLevel:     sp.Levels,
			CellWidth0: sp.CellWidth,
			WithFlux:   sp.FixUpFlux,
			WithPot:    sp.ExchangePotential,
			Debug:      sp.Debug,
		}
		g  = amr.NewGrid(cfg, rank)
		n  = cfg.PatchSize
		n3 = n * n * n
	)
	log = log.With(zap.Int("rank", rank))

	// One real patch per rank plus a buffer mirror of the neighbor.
	own := amr.NewPatch()
	own.Corner = [3]int{rank * n, 0, 0}
	own.LBIdx = rank
	g.AllocField(own)
	for v := 0; v < cfg.NChan; v++ {
		for c := 0; c < n3; c++ {
			own.Field[0][v*n3+c] = float64(rank + 1)
		}
	}
	mirror := amr.NewPatch()
	mirror.Corner = [3]int{(1 - rank) * n, 0, 0}
	mirror.LBIdx = 1 - rank
	g.AllocField(mirror)
	g.AddReal(0, own)
	g.AddBuffer(0, mirror)

	// The shared face: rank 0 sees its neighbor at +x, rank 1 at -x.
	var toward amr.Direction = amr.XP
	if rank == 1 {
		toward = amr.XM
	}
	topo := g.Levels[0].Topo
	topo.SetSibRank(toward, 1-rank)
	topo.SetList(amr.ListGeneral, toward, []int{0}, []int{1})

	// The fine side accumulates into the buffer mirror's face toward its own
	// interior, the coarse side consumes on its face toward the fine rank.
	if cfg.WithFlux {
		if rank == 0 {
			g.AllocFlux(own, amr.XP)
			topo.SetList(amr.ListFlux, amr.XP, nil, []int{0})
		} else {
			g.AllocFlux(mirror, amr.XP)
			fp := mirror.Flux[amr.XP]
			for c := range fp {
				fp[c] = 0.25
			}
			topo.SetList(amr.ListFlux, amr.XM, []int{1}, nil)
		}
	}

	eng := exchange.NewEngine(g, comm, log)
	eng.Workers = sp.Workers

	before := g.ConservedTotal(0, 0, 0)
	eng.ExchangeBoundaryData(0, exchange.GhostFill{
		Scope:      exchange.FillGeneral,
		FieldSlot:  0,
		Channels:   amr.FieldMask(cfg.NChan),
		GhostWidth: sp.GhostWidth,
	})
	_, disp := toward.Mirror().Slab(n, sp.GhostWidth)
	log.Info("ghost fill complete",
		zap.Float64("mirrorBoundary", mirror.Field[0][g.FieldIndex(0, disp[2], disp[1], disp[0])]),
		zap.Float64("neighborValue", float64(2-rank)))

	if cfg.WithFlux {
		eng.ExchangeBoundaryData(0, exchange.FluxExchange{Channels: amr.AllFlux(cfg.NFlux)})
		opt := fixup.HydroOptions()
		opt.CorrectFlux = sp.FixUpFlux
		opt.Restrict = false // single-level demo
		opt.PositiveDensity = sp.PositiveDensity
		opt.Gamma = sp.Gamma
		opt.PressureFloor = sp.PressureFloor
		opt.Workers = sp.Workers
		fixup.NewEngine(g, opt, log).FixUp(0, 0.1)
	}
	after := g.ConservedTotal(0, 0, 0)
	log.Info("cycle complete",
		zap.Float64("densityTotalBefore", before),
		zap.Float64("densityTotalAfter", after))
	return nil
}
