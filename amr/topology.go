package amr

import "fmt"

// ListKind selects one of the precomputed send/receive list families. Each
// exchange mode carries its own lists so the minimum data moves for that
// situation; the load balancer rebuilds all of them together after a
// regrid, and they stay stable until the next rebalance.
type ListKind uint8

const (
	ListGeneral     ListKind = iota // sibling and coarse-grid data
	ListAfterRegrid                 // subset of ListGeneral touched by a regrid
	ListAfterFixup                  // subset of ListGeneral touched by a fix-up
	ListRestrict                    // restricted father data with sons not home
	ListPotSolve                    // potential for the elliptic solve
	ListPotRegrid                   // potential after a regrid
	ListFlux                        // coarse-fine boundary fluxes

	numListKinds
)

var listKindNames = [numListKinds]string{
	"General", "AfterRegrid", "AfterFixup", "Restrict", "PotSolve", "PotRegrid", "Flux",
}

func (k ListKind) String() string {
	if int(k) < len(listKindNames) {
		return listKindNames[k]
	}
	return fmt.Sprintf("ListKind(%d)", uint8(k))
}

// PairList is one direction's send and receive lists: ordered local PIDs
// whose boundary regions go to, or are filled from, the neighboring rank.
// Ordering is significant; the n-th packed region must be the n-th unpacked
// region on the other side.
type PairList struct {
	SendPID []int
	RecvPID []int
}

// Topology is the neighbor topology provider's per-level product: for every
// direction, the owning rank of the opposite neighbor and the send/receive
// lists of every list kind. It is built externally by the regridding and
// load-balancing machinery and only read here. Sibling, father and son links
// are assumed mutually consistent across ranks.
type Topology struct {
	sibRank [NumDirs]int
	lists   [numListKinds][NumDirs]PairList
}

// NewTopology returns a topology with every neighbor rank set to NoPatch and
// all lists empty.
func NewTopology() *Topology {
	t := &Topology{}
	for d := range t.sibRank {
		t.sibRank[d] = NoPatch
	}
	return t
}

// SetSibRank records the rank owning the neighbor in direction d.
func (t *Topology) SetSibRank(d Direction, rank int) { t.sibRank[d] = rank }

// SibRank returns the rank owning the neighbor in direction d.
func (t *Topology) SibRank(d Direction) int { return t.sibRank[d] }

// SetList installs the send/receive lists of kind k in direction d.
func (t *Topology) SetList(k ListKind, d Direction, send, recv []int) {
	t.lists[k][d] = PairList{SendPID: send, RecvPID: recv}
}

// List returns the send/receive lists of kind k in direction d.
func (t *Topology) List(k ListKind, d Direction) PairList {
	return t.lists[k][d]
}
