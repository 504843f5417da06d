// Package overlap holds the chainer's output record and its PAF
// rendering.
package overlap

import "fmt"

// Overlap is a reported alignment footprint between two sequences, using
// half-open intervals on both sides.
type Overlap struct {
	LhsID    uint32
	LhsBegin uint32
	LhsEnd   uint32
	RhsID    uint32
	RhsBegin uint32
	RhsEnd   uint32
	Score    uint32
	Strand   bool // true: same strand, false: reverse complement
}

// PAF renders o as a PAF-like tab-separated line. block_len is
// max(q_end-q_beg, t_end-t_beg); the trailing field is a fixed
// mapping-quality placeholder, since the core produces no base-level
// alignment to score one from.
func PAF(o Overlap, lhsName string, lhsLen int, rhsName string, rhsLen int) string {
	strand := "+"
	if !o.Strand {
		strand = "-"
	}

	qSpan := o.LhsEnd - o.LhsBegin
	tSpan := o.RhsEnd - o.RhsBegin
	blockLen := qSpan
	if tSpan > blockLen {
		blockLen = tSpan
	}

	return fmt.Sprintf(
		"%s\t%d\t%d\t%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t255",
		lhsName, lhsLen, o.LhsBegin, o.LhsEnd, strand,
		rhsName, rhsLen, o.RhsBegin, o.RhsEnd,
		o.Score, blockLen,
	)
}
