package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSelfCommSwapsSides(t *testing.T) {
	var (
		c    = NewSelfComm()
		a    = []float64{1, 2, 3}
		b    = []float64{4, 5}
		send = [2][]float64{a, b}
	)
	require.Equal(t, 0, c.Rank())
	require.Equal(t, 1, c.Size())

	recv, err := c.ExchangeData([2]int{0, 0}, send, [2]int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, b, recv[0], "side 0 receives what side 1 sent")
	assert.Equal(t, a, recv[1], "side 1 receives what side 0 sent")
}

func TestSelfCommSizeMismatch(t *testing.T) {
	c := NewSelfComm()
	_, err := c.ExchangeData([2]int{0, 0}, [2][]float64{{1}, {2, 3}}, [2]int{5, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestSelfCommInactiveSides(t *testing.T) {
	c := NewSelfComm()
	recv, err := c.ExchangeData([2]int{-1, -1}, [2][]float64{}, [2]int{0, 0})
	require.NoError(t, err)
	assert.Nil(t, recv[0])
	assert.Nil(t, recv[1])
}

// exerciseTwoRanks runs one asymmetric-size exchange between two connected
// endpoints and checks both sides' routing. The sizes differ per side and
// per rank, the deadlock case a symmetric blocking send/recv would hit.
func exerciseTwoRanks(t *testing.T, comms [2]Comm) {
	t.Helper()
	var eg errgroup.Group
	for r := 0; r < 2; r++ {
		var (
			rank = r
			c    = comms[r]
		)
		eg.Go(func() error {
			// Rank 0: side 0 sends 3 values, side 1 sends 1.
			// Rank 1: side 0 sends 2 values, side 1 sends 4.
			// Side s of one rank pairs with side 1-s of the other.
			var (
				send [2][]float64
				want [2]int
			)
			if rank == 0 {
				send = [2][]float64{{10, 11, 12}, {13}}
				want = [2]int{4, 2}
			} else {
				send = [2][]float64{{20, 21}, {22, 23, 24, 25}}
				want = [2]int{1, 3}
			}
			recv, err := c.ExchangeData([2]int{1 - rank, 1 - rank}, send, want)
			if err != nil {
				return err
			}
			if rank == 0 {
				assert.Equal(t, []float64{22, 23, 24, 25}, recv[0])
				assert.Equal(t, []float64{20, 21}, recv[1])
			} else {
				assert.Equal(t, []float64{13}, recv[0])
				assert.Equal(t, []float64{10, 11, 12}, recv[1])
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

func TestPipeCommAsymmetricExchange(t *testing.T) {
	c0, c1 := NewPipeComm()
	require.Equal(t, 0, c0.Rank())
	require.Equal(t, 1, c1.Rank())
	exerciseTwoRanks(t, [2]Comm{c0, c1})
}

func TestPipeCommSizeMismatchIsAnError(t *testing.T) {
	c0, c1 := NewPipeComm()
	var eg errgroup.Group
	eg.Go(func() error {
		_, err := c0.ExchangeData([2]int{1, 1}, [2][]float64{{1, 2}, {3}}, [2]int{1, 1})
		return err
	})
	eg.Go(func() error {
		// Expects 5 values on side 0 but the peer sends 1
		_, err := c1.ExchangeData([2]int{0, 0}, [2][]float64{{4}, {5}}, [2]int{5, 2})
		return err
	})
	err := eg.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")
}

func TestTCPCommAsymmetricExchange(t *testing.T) {
	ln0, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addrs := []string{ln0.Addr().String(), ln1.Addr().String()}

	var (
		comms [2]Comm
		eg    errgroup.Group
	)
	eg.Go(func() error {
		c, err := NewTCPComm(0, ln0, addrs)
		if err == nil {
			comms[0] = c
		}
		return err
	})
	eg.Go(func() error {
		c, err := NewTCPComm(1, ln1, addrs)
		if err == nil {
			comms[1] = c
		}
		return err
	})
	require.NoError(t, eg.Wait())
	defer comms[0].(*TCPComm).Close()
	defer comms[1].(*TCPComm).Close()

	exerciseTwoRanks(t, comms)

	// Zero-length buffers still synchronize
	var eg2 errgroup.Group
	for r := 0; r < 2; r++ {
		c := comms[r]
		eg2.Go(func() error {
			recv, err := c.ExchangeData([2]int{1 - c.Rank(), 1 - c.Rank()},
				[2][]float64{{}, {}}, [2]int{0, 0})
			if err != nil {
				return err
			}
			assert.Empty(t, recv[0])
			assert.Empty(t, recv[1])
			return nil
		})
	}
	require.NoError(t, eg2.Wait())
}
