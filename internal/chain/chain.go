// Package chain groups seed matches into collinear chains and scores
// them into overlaps.
package chain

import (
	"sort"

	"github.com/vaser-bio/ramgo/internal/overlap"
	"github.com/vaser-bio/ramgo/internal/radix"
	"github.com/vaser-bio/ramgo/internal/seed"
)

// Params bundles the chaining thresholds, shared with the sketcher's k.
type Params struct {
	K     uint32 // k-mer length
	M     uint32 // score floor
	G     uint32 // lhs-position gap-split threshold
	N     uint32 // chain-length floor (also used as a band-size floor)
	BestN uint32 // 0 disables best_n truncation
}

// bandTolerance is the fixed diagonal-proximity window used to bundle
// matches into bands before per-band LIS extraction.
const bandTolerance = uint64(500)

type interval struct{ j, i int }

// Chain radix-sorts matches by their packed diagonal key, bundles them
// into bands within bandTolerance, extracts a longest collinear
// subsequence per band with a strand-parity comparator, splits on
// lhs-position gaps larger than G, and scores each resulting segment by
// non-overlapping coverage on both sides, keeping segments whose score
// meets M and whose match count meets N. When BestN is set and more than
// BestN overlaps survive, only the BestN highest-scoring ones are kept.
func Chain(lhsID uint32, matches []seed.Record, p Params) []overlap.Overlap {
	if len(matches) == 0 {
		return nil
	}

	radix.Sort(matches, 64, func(r seed.Record) uint64 { return r.High })
	matches = append(matches, seed.Record{High: ^uint64(0), Low: ^uint64(0)})

	var intervals []interval
	j := 0
	for i := 1; i < len(matches); i++ {
		if matches[i].High-matches[j].High > bandTolerance {
			if uint32(i-j) >= p.N {
				if len(intervals) > 0 && intervals[len(intervals)-1].i > j {
					intervals[len(intervals)-1].i = i
				} else {
					intervals = append(intervals, interval{j, i})
				}
			}
			j++
			for j < i && matches[i].High-matches[j].High > bandTolerance {
				j++
			}
		}
	}

	var dst []overlap.Overlap
	for _, iv := range intervals {
		dst = append(dst, chainBand(lhsID, matches, iv.j, iv.i, p)...)
	}

	if p.BestN != 0 && uint32(len(dst)) > p.BestN {
		sort.Slice(dst, func(a, b int) bool { return dst[a].Score > dst[b].Score })
		dst = dst[:p.BestN]
	}
	return dst
}

func chainBand(lhsID uint32, matches []seed.Record, j, i int, p Params) []overlap.Overlap {
	if uint32(i-j) < p.N {
		return nil
	}

	band := matches[j:i]
	radix.Sort(band, 64, func(r seed.Record) uint64 { return r.Low })

	sameStrand := (matches[j].High>>32)&1 == 1

	var indices []int
	if sameStrand {
		indices = longestSubsequence(matches, j, i, func(a, b uint32) bool { return a < b })
	} else {
		indices = longestSubsequence(matches, j, i, func(a, b uint32) bool { return a > b })
	}
	if uint32(len(indices)) < p.N {
		return nil
	}
	indices = append(indices, len(matches)-1-j)

	rhsID := uint32(matches[j].High >> 33)

	var dst []overlap.Overlap
	l := 0
	for k := 1; k < len(indices); k++ {
		curLhs := matches[j+indices[k]].Low >> 32
		prevLhs := matches[j+indices[k-1]].Low >> 32
		if curLhs-prevLhs <= uint64(p.G) {
			continue
		}
		if uint32(k-l) < p.N {
			l = k
			continue
		}

		var lhsMatches, lhsBegin, lhsEnd uint32
		var rhsMatches, rhsBegin, rhsEnd uint32
		for m := l; m < k; m++ {
			lhsPos := uint32(matches[j+indices[m]].Low >> 32)
			if lhsPos > lhsEnd {
				lhsMatches += lhsEnd - lhsBegin
				lhsBegin = lhsPos
			}
			lhsEnd = lhsPos + p.K

			rhsPos := uint32(matches[j+indices[m]].Low)
			if !sameStrand {
				rhsPos = (uint32(1) << 31) - (rhsPos + p.K - 1)
			}
			if rhsPos > rhsEnd {
				rhsMatches += rhsEnd - rhsBegin
				rhsBegin = rhsPos
			}
			rhsEnd = rhsPos + p.K
		}
		lhsMatches += lhsEnd - lhsBegin
		rhsMatches += rhsEnd - rhsBegin

		score := lhsMatches
		if rhsMatches < score {
			score = rhsMatches
		}
		if score < p.M {
			l = k
			continue
		}

		lhsFinalBegin := uint32(matches[j+indices[l]].Low >> 32)
		lhsFinalEnd := p.K + uint32(matches[j+indices[k-1]].Low>>32)

		var rhsFinalBegin, rhsFinalEnd uint32
		if sameStrand {
			rhsFinalBegin = uint32(matches[j+indices[l]].Low)
			rhsFinalEnd = p.K + uint32(matches[j+indices[k-1]].Low)
		} else {
			rhsFinalBegin = uint32(matches[j+indices[k-1]].Low)
			rhsFinalEnd = p.K + uint32(matches[j+indices[l]].Low)
		}

		dst = append(dst, overlap.Overlap{
			LhsID:    lhsID,
			LhsBegin: lhsFinalBegin,
			LhsEnd:   lhsFinalEnd,
			RhsID:    rhsID,
			RhsBegin: rhsFinalBegin,
			RhsEnd:   rhsFinalEnd,
			Score:    score,
			Strand:   sameStrand,
		})

		l = k
	}
	return dst
}

// longestSubsequence extracts a longest collinear subsequence of
// matches[j:i], indices relative to j: strictly increasing lhs position
// and rhsLess(prevRhs, curRhs) on the rhs position. It is a patience-sort
// LIS: predecessor links are reconstructed backward from the tail of the
// longest pile.
func longestSubsequence(matches []seed.Record, j, i int, rhsLess func(a, b uint32) bool) []int {
	n := i - j
	if n <= 0 {
		return nil
	}

	minimal := make([]int, n+1)
	predecessor := make([]int, n)
	longest := 0

	lhsAt := func(idx int) uint32 { return uint32(matches[j+idx].Low >> 32) }
	rhsAt := func(idx int) uint32 { return uint32(matches[j+idx].Low) }

	for idx := 0; idx < n; idx++ {
		lo, hi := 1, longest
		for lo <= hi {
			mid := lo + (hi-lo)/2
			cand := minimal[mid]
			if lhsAt(cand) < lhsAt(idx) && rhsLess(rhsAt(cand), rhsAt(idx)) {
				lo = mid + 1
			} else {
				hi = mid - 1
			}
		}
		predecessor[idx] = minimal[lo-1]
		minimal[lo] = idx
		if lo > longest {
			longest = lo
		}
	}

	dst := make([]int, longest)
	k := minimal[longest]
	for x := longest - 1; x >= 0; x-- {
		dst[x] = k
		k = predecessor[k]
	}
	return dst
}
