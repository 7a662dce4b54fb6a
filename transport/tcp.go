package transport

import (
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// tcpFrame is one gob-encoded message: the sender's rank and side plus the
// buffer. Count travels explicitly so a receive-size disagreement is caught
// before any unpacking happens.
type tcpFrame struct {
	Rank  int
	Side  int
	Count int
	Data  []float64
}

// hello is the connection-setup message identifying the dialing rank.
type hello struct {
	Rank int
}

type tcpPeer struct {
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
	wmu  sync.Mutex
	rmu  sync.Mutex
}

// TCPComm exchanges buffers between processes over TCP with gob framing.
// Rank r dials every rank below r and accepts connections from every rank
// above r, so a world of n ranks forms a full mesh during setup.
type TCPComm struct {
	rank  int
	size  int
	peers map[int]*tcpPeer
	ln    net.Listener
}

// NewTCPComm establishes the mesh for the local rank. addrs[i] is rank i's
// listen address; ln must already listen on addrs[rank] (the caller creates
// it first so the address is known before any peer dials).
func NewTCPComm(rank int, ln net.Listener, addrs []string) (*TCPComm, error) {
	c := &TCPComm{
		rank:  rank,
		size:  len(addrs),
		peers: make(map[int]*tcpPeer, len(addrs)-1),
		ln:    ln,
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		// first setup error wins
		errc = make(chan error, len(addrs))
	)
	// Dial the lower ranks.
	for r := 0; r < rank; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.Dial("tcp", addrs[r])
			if err != nil {
				errc <- fmt.Errorf("rank %d dialing rank %d: %w", rank, r, err)
				return
			}
			p := &tcpPeer{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)}
			if err = p.enc.Encode(hello{Rank: rank}); err != nil {
				errc <- fmt.Errorf("rank %d hello to rank %d: %w", rank, r, err)
				return
			}
			mu.Lock()
			c.peers[r] = p
			mu.Unlock()
		}()
	}
	// Accept the higher ranks.
	for r := rank + 1; r < len(addrs); r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := ln.Accept()
			if err != nil {
				errc <- fmt.Errorf("rank %d accepting: %w", rank, err)
				return
			}
			p := &tcpPeer{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)}
			var h hello
			if err = p.dec.Decode(&h); err != nil {
				errc <- fmt.Errorf("rank %d reading hello: %w", rank, err)
				return
			}
			mu.Lock()
			c.peers[h.Rank] = p
			mu.Unlock()
		}()
	}
	wg.Wait()
	select {
	case err := <-errc:
		c.Close()
		return nil, err
	default:
	}
	if len(c.peers) != len(addrs)-1 {
		c.Close()
		return nil, fmt.Errorf("rank %d connected %d of %d peers", rank, len(c.peers), len(addrs)-1)
	}
	return c, nil
}

func (c *TCPComm) Rank() int { return c.rank }
func (c *TCPComm) Size() int { return c.size }

// Close shuts the listener and every peer connection.
func (c *TCPComm) Close() error {
	var first error
	if c.ln != nil {
		first = c.ln.Close()
	}
	for _, p := range c.peers {
		if err := p.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *TCPComm) ExchangeData(peers [2]int, send [2][]float64, wantRecv [2]int) (recv [2][]float64, err error) {
	var (
		eg errgroup.Group
		mu sync.Mutex
		// frames expected per peer connection; both sides of a pair may
		// share one peer rank, in which case two frames arrive on one
		// connection and the side tag routes them.
		expect = make(map[int]int)
	)
	for t := 0; t < 2; t++ {
		t := t
		if peers[t] < 0 {
			continue // inactive side, nothing travels
		}
		if peers[t] == c.rank {
			if recv[t], err = selfExchange(send, wantRecv, t); err != nil {
				return recv, err
			}
			continue
		}
		p, ok := c.peers[peers[t]]
		if !ok {
			return recv, fmt.Errorf("rank %d has no connection to rank %d", c.rank, peers[t])
		}
		expect[peers[t]]++
		eg.Go(func() error {
			p.wmu.Lock()
			defer p.wmu.Unlock()
			frame := tcpFrame{Rank: c.rank, Side: t, Count: len(send[t]), Data: send[t]}
			if err := p.enc.Encode(frame); err != nil {
				return fmt.Errorf("rank %d sending side %d to rank %d: %w", c.rank, t, peers[t], err)
			}
			return nil
		})
	}
	for r, n := range expect {
		r, n := r, n
		p := c.peers[r]
		eg.Go(func() error {
			p.rmu.Lock()
			defer p.rmu.Unlock()
			for i := 0; i < n; i++ {
				var frame tcpFrame
				if err := p.dec.Decode(&frame); err != nil {
					return fmt.Errorf("rank %d receiving from rank %d: %w", c.rank, r, err)
				}
				t := 1 - frame.Side
				if frame.Count != wantRecv[t] || len(frame.Data) != frame.Count {
					return fmt.Errorf("size mismatch on side %d: rank %d sent %d, expected %d",
						t, r, frame.Count, wantRecv[t])
				}
				mu.Lock()
				if frame.Count == 0 && frame.Data == nil {
					frame.Data = []float64{}
				}
				recv[t] = frame.Data
				mu.Unlock()
			}
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return recv, err
	}
	return recv, nil
}
