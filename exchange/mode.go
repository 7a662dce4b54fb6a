// Package exchange implements the boundary-data exchange engine: packing
// the boundary regions or face fluxes of every patch in a direction's send
// list into one contiguous buffer, swapping buffers pairwise with the rank
// owning the opposite neighbor, and unpacking into the matching receive-list
// patches. One pack/transfer/unpack mechanism serves every mode; modes
// differ only in which precomputed lists they select, which arrays they
// touch, and whether unpacking overwrites or accumulates.
package exchange

import (
	"fmt"

	"github.com/notargets/goamr/amr"
)

// Request selects what one ExchangeBoundaryData call moves. Each mode is its
// own variant carrying only the fields meaningful to it, so a flux exchange
// cannot be handed a ghost width and a potential fill cannot name field
// channels; the remaining runtime checks cover only value ranges.
type Request interface {
	kind() amr.ListKind
	String() string
}

// FillScope names the list family a GhostFill draws from. The narrower
// scopes move the subset of ListGeneral touched by a regrid or a fix-up.
type FillScope uint8

const (
	FillGeneral FillScope = iota
	FillAfterRegrid
	FillAfterFixup
)

var fillScopeKinds = [...]amr.ListKind{amr.ListGeneral, amr.ListAfterRegrid, amr.ListAfterFixup}
var fillScopeNames = [...]string{"General", "AfterRegrid", "AfterFixup"}

// GhostFill replicates boundary cells of the selected field channels (and
// the potential when its bit is set) into neighboring patches' ghost
// regions, GhostWidth layers deep.
type GhostFill struct {
	Scope      FillScope
	FieldSlot  int
	PotSlot    int
	Channels   amr.ChannelMask
	GhostWidth int
}

func (r GhostFill) kind() amr.ListKind { return fillScopeKinds[r.Scope] }
func (r GhostFill) String() string {
	return fmt.Sprintf("GhostFill(%s, channels=%#x, width=%d)", fillScopeNames[r.Scope], r.Channels, r.GhostWidth)
}

// PotScope names the list family a PotentialFill draws from.
type PotScope uint8

const (
	PotForSolve PotScope = iota
	PotAfterRegrid
)

var potScopeKinds = [...]amr.ListKind{amr.ListPotSolve, amr.ListPotRegrid}
var potScopeNames = [...]string{"ForSolve", "AfterRegrid"}

// PotentialFill replicates boundary cells of the scalar potential only,
// using the potential-specific lists.
type PotentialFill struct {
	Scope      PotScope
	PotSlot    int
	GhostWidth int
}

func (r PotentialFill) kind() amr.ListKind { return potScopeKinds[r.Scope] }
func (r PotentialFill) String() string {
	return fmt.Sprintf("PotentialFill(%s, width=%d)", potScopeNames[r.Scope], r.GhostWidth)
}

// RestrictedPull moves whole-patch restricted data for father patches whose
// sons live on another rank; there is no ghost width because the full cube
// travels.
type RestrictedPull struct {
	FieldSlot int
	PotSlot   int
	Channels  amr.ChannelMask
}

func (r RestrictedPull) kind() amr.ListKind { return amr.ListRestrict }
func (r RestrictedPull) String() string {
	return fmt.Sprintf("RestrictedPull(channels=%#x)", r.Channels)
}

// FluxExchange accumulates fine-side face fluxes into the coarse-side
// accumulators across rank boundaries. Only the six face directions
// participate and exactly one face layer travels, so it carries no width.
type FluxExchange struct {
	Channels amr.FluxMask
}

func (r FluxExchange) kind() amr.ListKind { return amr.ListFlux }
func (r FluxExchange) String() string {
	return fmt.Sprintf("FluxExchange(channels=%#x)", r.Channels)
}
