package transport

import "fmt"

// pipeFrame tags a buffer with the sender's side index so the receiver can
// route it: a buffer sent toward direction d arrives as the mirror
// direction's receive, so sender side s lands in receiver side 1-s.
type pipeFrame struct {
	side    int
	payload []float64
}

// PipeComm connects two in-process ranks through a pair of channels. It
// backs single-process tests and the two-rank demo; the wire protocol
// (side tag plus implicit element count) matches the TCP communicator.
type PipeComm struct {
	rank int
	out  chan<- pipeFrame
	in   <-chan pipeFrame
}

// NewPipeComm returns the two connected endpoints of a two-rank world.
func NewPipeComm() (rank0, rank1 *PipeComm) {
	a := make(chan pipeFrame, 2)
	b := make(chan pipeFrame, 2)
	rank0 = &PipeComm{rank: 0, out: a, in: b}
	rank1 = &PipeComm{rank: 1, out: b, in: a}
	return
}

func (c *PipeComm) Rank() int { return c.rank }
func (c *PipeComm) Size() int { return 2 }

func (c *PipeComm) ExchangeData(peers [2]int, send [2][]float64, wantRecv [2]int) (recv [2][]float64, err error) {
	var (
		got    [2]bool
		remote int
	)
	for t := 0; t < 2; t++ {
		switch {
		case peers[t] < 0:
			got[t] = true // inactive side, nothing travels
		case peers[t] == c.rank:
			if recv[t], err = selfExchange(send, wantRecv, t); err != nil {
				return recv, err
			}
			got[t] = true
		case peers[t] == 1-c.rank:
			// Channel capacity covers both sides, so posting before
			// receiving cannot block even when the peer posts first.
			c.out <- pipeFrame{side: t, payload: send[t]}
			remote++
		default:
			return recv, fmt.Errorf("pipe comm has no peer rank %d", peers[t])
		}
	}
	for n := 0; n < remote; n++ {
		f := <-c.in
		t := 1 - f.side
		if got[t] {
			return recv, fmt.Errorf("duplicate frame for side %d", t)
		}
		if len(f.payload) != wantRecv[t] {
			return recv, fmt.Errorf("size mismatch on side %d: peer sent %d, expected %d",
				t, len(f.payload), wantRecv[t])
		}
		recv[t] = f.payload
		got[t] = true
	}
	return recv, nil
}
