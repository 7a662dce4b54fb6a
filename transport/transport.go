// Package transport provides the pairwise cross-rank buffer exchange used by
// the exchange engine. All calls are blocking; implementations overlap their
// sends and receives internally with goroutines so an exchange completes
// regardless of the relative buffer sizes on the two sides.
package transport

import "fmt"

// Comm exchanges buffers between ranks. One call serves one direction pair:
// side 0 and side 1 each name a partner rank and carry their own send
// buffer, and the call returns the buffers received from both partners.
//
// A negative partner rank marks an inactive side (a non-periodic domain
// edge): nothing is sent or received for it and its returned buffer is nil.
//
// wantRecv is the receive size each side computed from its own lists. Every
// transmitted buffer is preceded by its element count; a count disagreeing
// with wantRecv means the two ranks built mutually inconsistent lists, which
// is a protocol violation reported as an error and not recoverable.
type Comm interface {
	Rank() int
	Size() int
	ExchangeData(peers [2]int, send [2][]float64, wantRecv [2]int) ([2][]float64, error)
}

// selfExchange resolves the sides of a pair that point back at the local
// rank: side t receives what side 1-t sent, the wrap-around case of a
// periodic axis owned by a single rank.
func selfExchange(send [2][]float64, wantRecv [2]int, t int) ([]float64, error) {
	got := send[1-t]
	if len(got) != wantRecv[t] {
		return nil, fmt.Errorf("self exchange size mismatch on side %d: sent %d, expected %d",
			t, len(got), wantRecv[t])
	}
	return got, nil
}

// SelfComm is the single-rank communicator: every partner must be the local
// rank and both sides of a pair swap buffers in place.
type SelfComm struct {
	rank int
}

// NewSelfComm returns a communicator for a world of one rank.
func NewSelfComm() *SelfComm { return &SelfComm{} }

func (c *SelfComm) Rank() int { return c.rank }
func (c *SelfComm) Size() int { return 1 }

func (c *SelfComm) ExchangeData(peers [2]int, send [2][]float64, wantRecv [2]int) (recv [2][]float64, err error) {
	for t := 0; t < 2; t++ {
		if peers[t] < 0 {
			continue
		}
		if peers[t] != c.rank {
			return recv, fmt.Errorf("self comm has no peer rank %d", peers[t])
		}
		if recv[t], err = selfExchange(send, wantRecv, t); err != nil {
			return recv, err
		}
	}
	return recv, nil
}
