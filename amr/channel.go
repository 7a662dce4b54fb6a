package amr

import "math/bits"

// ChannelMask selects a subset of per-cell channels for an exchange. Bit v
// selects field channel v; the potential carries its own bit so a single
// mask can request field and potential data together.
type ChannelMask uint32

// PoteBit selects the scalar potential field.
const PoteBit ChannelMask = 1 << 30

// FieldMask returns a mask selecting the first n field channels.
func FieldMask(n int) ChannelMask { return ChannelMask(1<<n) - 1 }

// HasPot reports whether the potential bit is set.
func (m ChannelMask) HasPot() bool { return m&PoteBit != 0 }

// FieldBits returns m restricted to field channel bits.
func (m ChannelMask) FieldBits() ChannelMask { return m &^ PoteBit }

// FieldIndices expands the set field channel bits below nchan into an
// ordered index list.
func (m ChannelMask) FieldIndices(nchan int) []int {
	var idx []int
	for v := 0; v < nchan; v++ {
		if m&(1<<v) != 0 {
			idx = append(idx, v)
		}
	}
	return idx
}

// FluxMask selects a subset of flux channels; bit v selects flux channel v.
// Flux channels parallel the first NFlux field channels.
type FluxMask uint32

// AllFlux returns a mask selecting the first n flux channels.
func AllFlux(n int) FluxMask { return FluxMask(1<<n) - 1 }

// Indices expands the set bits below nflux into an ordered index list.
func (m FluxMask) Indices(nflux int) []int {
	var idx []int
	for v := 0; v < nflux; v++ {
		if m&(1<<v) != 0 {
			idx = append(idx, v)
		}
	}
	return idx
}

// Count returns the number of selected flux channels.
func (m FluxMask) Count() int { return bits.OnesCount32(uint32(m)) }
