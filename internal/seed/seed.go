// Package seed collects and packs match records between a query sketch
// and the index, or between two sketches directly.
package seed

import (
	"github.com/vaser-bio/ramgo/internal/index"
	"github.com/vaser-bio/ramgo/internal/sketch"
)

// diagonalBias is the opposite-strand-symmetric reflection constant
// applied when packing a same-strand diagonal, mirroring the source's
// `3ULL << 30` bias so same-strand diagonals stay positive after the
// rhs-minus-lhs subtraction.
const diagonalBias = uint64(3) << 30

// Record is the packed 128-bit match record: High carries the target id,
// same-strand flag and diagonal; Low carries the query and target
// positions.
type Record struct {
	High uint64
	Low  uint64
}

// RhsID returns the id of the sequence this match hit in the index.
func (r Record) RhsID() uint32 { return uint32(r.High >> 33) }

// SameStrand reports whether the query and target minimizer chose the
// same canonical orientation.
func (r Record) SameStrand() bool { return (r.High>>32)&1 == 1 }

// Diagonal returns the packed diagonal value.
func (r Record) Diagonal() uint32 { return uint32(r.High) }

// LhsPos returns the query-side k-mer start.
func (r Record) LhsPos() uint32 { return uint32(r.Low >> 32) }

// RhsPos returns the target-side k-mer start.
func (r Record) RhsPos() uint32 { return uint32(r.Low) }

func pack(rhsID uint32, sameStrand bool, lhsPos, rhsPos uint32) Record {
	var strandBit uint64
	var diagonal uint64
	if sameStrand {
		strandBit = 1
		diagonal = (uint64(rhsPos) - uint64(lhsPos) + diagonalBias) & 0xFFFFFFFF
	} else {
		diagonal = (uint64(rhsPos) + uint64(lhsPos)) & 0xFFFFFFFF
	}
	high := (((uint64(rhsID) << 1) | strandBit) << 32) | diagonal
	low := (uint64(lhsPos) << 32) | uint64(rhsPos)
	return Record{High: high, Low: low}
}

// Collect looks up every minimizer of a query sketch in idx and returns
// the packed match records for every surviving occurrence: keys over the
// occurrence cutoff are skipped, and avoidEqual/avoidSymmetric filter
// target ids relative to queryID.
func Collect(queryID uint32, sketchRecs []sketch.Record, idx *index.Index, avoidEqual, avoidSymmetric bool) []Record {
	var matches []Record
	for _, q := range sketchRecs {
		shardIdx, begin, count, ok := idx.Lookup(q.Key)
		if !ok || idx.OverCutoff(q.Key) {
			continue
		}

		run := idx.Records(shardIdx)[begin : begin+count]
		for _, hit := range run {
			rhsID := hit.ID()
			if avoidEqual && queryID == rhsID {
				continue
			}
			if avoidSymmetric && queryID > rhsID {
				continue
			}

			sameStrand := q.Strand() == hit.Strand()
			matches = append(matches, pack(rhsID, sameStrand, q.Position(), hit.Position()))
		}
	}
	return matches
}

// CollectPair merge-walks two already key-sorted sketches and packs match
// records between every equal-key pair, without going through an index:
// equivalent to building a one-sequence index over rhs and mapping lhs
// against it.
func CollectPair(rhsID uint32, lhsSorted, rhsSorted []sketch.Record) []Record {
	var matches []Record
	j := 0
	for i := 0; i < len(lhsSorted); i++ {
		for j < len(rhsSorted) && rhsSorted[j].Key < lhsSorted[i].Key {
			j++
		}
		if j >= len(rhsSorted) || rhsSorted[j].Key != lhsSorted[i].Key {
			continue
		}
		for k := j; k < len(rhsSorted) && rhsSorted[k].Key == lhsSorted[i].Key; k++ {
			sameStrand := lhsSorted[i].Strand() == rhsSorted[k].Strand()
			matches = append(matches, pack(rhsID, sameStrand, lhsSorted[i].Position(), rhsSorted[k].Position()))
		}
	}
	return matches
}
