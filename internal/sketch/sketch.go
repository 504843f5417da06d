// Package sketch extracts the ordered list of minimizers from a sequence:
// a sliding-window minimum over canonical, optionally homopolymer-
// compressed k-mers, with optional robust winnowing, micromization, and a
// second-level window reduction.
package sketch

import (
	"fmt"

	"github.com/vaser-bio/ramgo/internal/codec"
	"github.com/vaser-bio/ramgo/internal/hasher"
	"github.com/vaser-bio/ramgo/internal/radix"
	"github.com/vaser-bio/ramgo/internal/seqio"
)

// Record is the 128-bit minimizer record from the data model: Key is the
// hashed k-mer, Loc packs (id<<32 | position<<1 | strand).
type Record struct {
	Key uint64
	Loc uint64
}

// ID returns the id of the sequence this minimizer was drawn from.
func (r Record) ID() uint32 { return uint32(r.Loc >> 32) }

// Position returns the 0-based k-mer start in original coordinates.
func (r Record) Position() uint32 { return uint32(r.Loc) >> 1 }

// Strand returns 0 for forward, 1 if the reverse complement was canonical.
func (r Record) Strand() uint8 { return uint8(r.Loc & 1) }

func packLoc(id uint32, position uint32, strand uint8) uint64 {
	return uint64(id)<<32 | uint64(position)<<1 | uint64(strand&1)
}

// Options configures the optional post-sketch reductions.
type Options struct {
	Micromize       bool
	MicromizeFactor float64
	N               int
}

// Sketcher holds the parameters that shape minimizer selection.
type Sketcher struct {
	K               int
	W               int
	HPC             bool
	RobustWinnowing bool
	ReduceWinSz     int
}

// ClampedK returns the k-mer length actually used after clamping to
// [1, 32].
func (s Sketcher) ClampedK() int { return clampK(s.K) }

// clampK keeps k within the range a 64-bit packed key can hold two bits
// per base of.
func clampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > 32 {
		return 32
	}
	return k
}

type windowEntry struct {
	key    uint64
	loc    uint64
	stored bool
}

// Sketch returns the ordered list of minimizers selected from seq. It
// returns (nil, nil) — not an error — when the sequence is shorter than k.
func (s Sketcher) Sketch(seq seqio.Sequence, opts Options) ([]Record, error) {
	k := clampK(s.K)
	w := s.W
	if w < 1 {
		w = 1
	}
	if len(seq.Data) < k {
		return nil, nil
	}

	codes := make([]uint8, len(seq.Data))
	for i, b := range seq.Data {
		c, err := codec.Encode(b)
		if err != nil {
			return nil, fmt.Errorf("sketch: sequence %q at position %d: %w", seq.Name, i, err)
		}
		codes[i] = c
	}

	mask := uint64(1)<<uint(2*k) - 1
	shift := uint(2 * (k - 1))

	var window []windowEntry

	pushWindow := func(key, loc uint64) {
		for len(window) > 0 && window[len(window)-1].key > key {
			window = window[:len(window)-1]
		}
		window = append(window, windowEntry{key: key, loc: loc})
	}
	robustPop := func() {
		for len(window) > 1 && window[0].key == window[1].key {
			window = window[1:]
		}
	}
	advanceWindow := func(position int) {
		popped := false
		for len(window) > 0 && int(positionOf(window[0].loc)) < position {
			window = window[1:]
			popped = true
		}
		if s.RobustWinnowing && popped {
			robustPop()
		}
	}

	var dst []Record
	var minimizer, revMinimizer uint64
	var winSpan, kmerSpan, baseCnt int

	for i := 0; i < len(codes); i++ {
		c := codes[i]

		skip := s.HPC && i > 0 && codes[i-1] == c
		if !skip {
			baseCnt++

			if baseCnt > k {
				kmerSpan--
				if s.HPC {
					lastC := codes[i-kmerSpan-1]
					for codes[i-kmerSpan] == lastC {
						kmerSpan--
					}
				}
			}

			minimizer = ((minimizer << 2) | uint64(c)) & mask
			revMinimizer = (revMinimizer >> 2) | (uint64(codec.Complement(c)) << shift)

			if baseCnt >= k {
				if minimizer < revMinimizer {
					pushWindow(hasher.Hash64(minimizer, mask), packLoc(seq.ID, uint32(i-kmerSpan), 0))
				} else if minimizer > revMinimizer {
					pushWindow(hasher.Hash64(revMinimizer, mask), packLoc(seq.ID, uint32(i-kmerSpan), 1))
				}
				// tie: a palindromic k-mer, skipped
			}

			if baseCnt >= k+w-1 {
				stop := len(window)
				if len(window) > 0 && s.RobustWinnowing {
					stop = 1
				}
				for idx := 0; idx < stop; idx++ {
					if window[idx].key != window[0].key {
						break
					}
					if window[idx].stored {
						continue
					}
					dst = append(dst, Record{Key: window[idx].key, Loc: window[idx].loc})
					window[idx].stored = true
				}
				winSpan--
				if s.HPC {
					lastC := codes[i-winSpan-1]
					for codes[i-winSpan] == lastC {
						winSpan--
					}
				}
				advanceWindow(i - winSpan)
			}
		}

		winSpan++
		kmerSpan++
	}

	if opts.Micromize {
		dst = micromize(dst, k, len(seq.Data), opts.MicromizeFactor, opts.N)
	}
	if s.ReduceWinSz > 0 {
		dst = reduce(dst, s.ReduceWinSz)
	}
	return dst, nil
}

func positionOf(loc uint64) uint32 {
	return uint32(loc) >> 1
}

// micromize keeps only the take smallest-key entries, preserving the
// first and last N emissions verbatim; interior selection is by hashed
// key, not by coverage.
func micromize(dst []Record, k, dataLen int, factor float64, n int) []Record {
	take := dataLen / k
	if factor > 0 {
		take = int(float64(len(dst)) * factor)
	}
	if take >= len(dst) {
		return dst
	}

	if 2*n <= len(dst) {
		interior := dst[n : len(dst)-n]
		radix.Sort(interior, 64, func(r Record) uint64 { return r.Key })
	}
	if n < take {
		tail := dst[len(dst)-n:]
		insertAt := take - n
		merged := make([]Record, 0, take)
		merged = append(merged, dst[:insertAt]...)
		merged = append(merged, tail...)
		dst = merged
	}
	if take < len(dst) {
		dst = dst[:take]
	}
	return dst
}

// reduce performs a second-level sliding-window minimum over the emitted
// sequence by key: only the per-window minima are kept, with ties within
// a window all kept once.
func reduce(dst []Record, winSz int) []Record {
	if len(dst) == 0 {
		return dst
	}
	if winSz > len(dst) {
		minKey := dst[0].Key
		for i := 1; i < len(dst); i++ {
			if dst[i].Key < minKey {
				minKey = dst[i].Key
			}
		}
		var out []Record
		for _, r := range dst {
			if r.Key == minKey {
				out = append(out, r)
			}
		}
		return out
	}

	type slot struct {
		key uint64
		pos int
	}
	var window []slot
	pushWindow := func(key uint64, pos int) {
		for len(window) > 0 && window[len(window)-1].key > key {
			window = window[:len(window)-1]
		}
		window = append(window, slot{key: key, pos: pos})
	}
	advanceWindow := func(position int) {
		for len(window) > 0 && window[0].pos < position {
			window = window[1:]
		}
	}

	stored := make([]bool, len(dst))
	var out []Record
	collect := func() {
		for _, sl := range window {
			if sl.key != window[0].key {
				break
			}
			if stored[sl.pos] {
				continue
			}
			stored[sl.pos] = true
			out = append(out, dst[sl.pos])
		}
	}

	for i := 0; i < winSz; i++ {
		pushWindow(dst[i].Key, i)
	}
	for i := winSz; i < len(dst); i++ {
		collect()
		advanceWindow(i - winSz + 1)
		pushWindow(dst[i].Key, i)
	}
	collect()
	return out
}
