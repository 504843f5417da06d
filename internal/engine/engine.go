// Package engine wires the sketcher, index, seed collector, and chainer
// behind a worker pool into a small set of overlap-finding operations.
package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vaser-bio/ramgo/internal/chain"
	"github.com/vaser-bio/ramgo/internal/index"
	"github.com/vaser-bio/ramgo/internal/overlap"
	"github.com/vaser-bio/ramgo/internal/pool"
	"github.com/vaser-bio/ramgo/internal/radix"
	"github.com/vaser-bio/ramgo/internal/seed"
	"github.com/vaser-bio/ramgo/internal/seqio"
	"github.com/vaser-bio/ramgo/internal/sketch"
)

// Engine is the top-level object: a sketcher, an index, chaining
// parameters, and a shared worker pool.
type Engine struct {
	sketcher sketch.Sketcher
	idx      *index.Index
	params   chain.Params
	pool     *pool.Pool
	log      *logrus.Entry
}

// New constructs an Engine. k is clamped to [1,32] by the sketcher; the
// remaining chaining parameters are taken as given.
func New(k, w int, m, g, n, bestN uint32, reduceWinSz int, robustWinnowing, hpc bool, p *pool.Pool) *Engine {
	sk := sketch.Sketcher{
		K:               k,
		W:               w,
		HPC:             hpc,
		RobustWinnowing: robustWinnowing,
		ReduceWinSz:     reduceWinSz,
	}
	return &Engine{
		sketcher: sk,
		idx:      index.New(k, sk),
		params:   chain.Params{K: uint32(sk.ClampedK()), M: m, G: g, N: n, BestN: bestN},
		pool:     p,
		log:      logrus.WithField("component", "engine"),
	}
}

// BuildIndex (re)builds the index from sequences, clearing any prior
// contents first.
func (e *Engine) BuildIndex(sequences []seqio.Sequence) error {
	e.log.WithField("sequences", len(sequences)).Info("building index")
	if err := e.idx.Build(sequences, sketch.Options{}, e.pool); err != nil {
		return fmt.Errorf("engine: build index: %w", err)
	}
	e.log.WithField("records", e.idx.Size()).Info("index built")
	return nil
}

// SetFrequencyCutoff sets the occurrence cutoff.
func (e *Engine) SetFrequencyCutoff(f float64) error {
	if err := e.idx.SetFrequencyCutoff(f); err != nil {
		return fmt.Errorf("engine: set frequency cutoff: %w", err)
	}
	return nil
}

// MapOptions bundles Map's optional arguments.
type MapOptions struct {
	Micromize       bool
	MicromizeFactor float64
	N               int
}

// Map sketches query, collects seed matches against the index, and
// chains them into overlaps.
func (e *Engine) Map(query seqio.Sequence, avoidEqual, avoidSymmetric bool, opts MapOptions) ([]overlap.Overlap, error) {
	sketchOpts := sketch.Options{Micromize: opts.Micromize, MicromizeFactor: opts.MicromizeFactor, N: opts.N}
	recs, err := e.sketcher.Sketch(query, sketchOpts)
	if err != nil {
		return nil, fmt.Errorf("engine: map %q: %w", query.Name, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	matches := seed.Collect(query.ID, recs, e.idx, avoidEqual, avoidSymmetric)
	return chain.Chain(query.ID, matches, e.params), nil
}

// MapBeginEnd maps only the first and last K bases of a long query and
// recombines the two hits into a single overlap. Queries no longer than
// 4K fall back to a plain Map.
func (e *Engine) MapBeginEnd(query seqio.Sequence, avoidEqual, avoidSymmetric bool, K uint32) ([]overlap.Overlap, error) {
	size := uint32(len(query.Data))
	if size <= 4*K {
		return e.Map(query, avoidEqual, avoidSymmetric, MapOptions{})
	}

	beginSeq := seqio.Sequence{ID: query.ID, Name: query.Name, Data: query.Data[:K]}
	endSeq := seqio.Sequence{ID: query.ID, Name: query.Name, Data: query.Data[size-K:]}

	endFuture := pool.Submit(func() ([]overlap.Overlap, error) {
		return e.Map(endSeq, avoidEqual, avoidSymmetric, MapOptions{})
	})
	beginOverlaps, err := e.Map(beginSeq, avoidEqual, avoidSymmetric, MapOptions{})
	if err != nil {
		return nil, err
	}
	endOverlaps, err := endFuture.Get()
	if err != nil {
		return nil, err
	}
	if len(beginOverlaps) == 0 || len(endOverlaps) == 0 {
		return nil, nil
	}

	ansI, ansJ := -1, -1
	minDiff := -1.0
	penalty := 1.0
	const penaltyMult = 1.08

	maxIndexSum := len(beginOverlaps) + len(endOverlaps) - 2
	for indexSum := 0; indexSum <= maxIndexSum; indexSum++ {
		for i, j := 0, indexSum; j >= 0 && i < len(beginOverlaps); i, j = i+1, j-1 {
			if j >= len(endOverlaps) {
				continue
			}

			bov := beginOverlaps[i]
			eov := endOverlaps[j]
			if bov.Strand != eov.Strand {
				continue
			}
			if bov.RhsID != eov.RhsID {
				continue
			}

			rhsBegin, rhsEnd := bov.RhsBegin, eov.RhsEnd
			if !eov.Strand {
				rhsBegin, rhsEnd = eov.RhsBegin, bov.RhsEnd
			}
			if rhsBegin > rhsEnd {
				continue
			}

			candidateLen := float64(rhsEnd - rhsBegin)
			diff := penalty * abs(candidateLen-float64(size))
			if minDiff < 0 || diff < minDiff {
				ansI, ansJ = i, j
				minDiff = diff
			}
		}
		penalty *= penaltyMult
	}

	if ansI == -1 {
		return nil, nil
	}

	bov := beginOverlaps[ansI]
	eov := endOverlaps[ansJ]

	lhsBegin := bov.LhsBegin
	lhsEnd := eov.LhsEnd + size - K
	rhsBegin := bov.RhsBegin
	rhsEnd := eov.RhsEnd
	if !bov.Strand {
		lhsBegin = eov.LhsBegin
		lhsEnd = bov.LhsEnd + size - K
		rhsBegin = eov.RhsBegin
		rhsEnd = bov.RhsEnd
	}

	lhsSpan := lhsEnd - lhsBegin
	rhsSpan := rhsEnd - rhsBegin
	score := lhsSpan
	if rhsSpan > score {
		score = rhsSpan
	}

	return []overlap.Overlap{{
		LhsID:    query.ID,
		LhsBegin: lhsBegin,
		LhsEnd:   lhsEnd,
		RhsID:    bov.RhsID,
		RhsBegin: rhsBegin,
		RhsEnd:   rhsEnd,
		Score:    score,
		Strand:   bov.Strand,
	}}, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// MapPairOptions bundles MapPair's optional arguments.
type MapPairOptions struct {
	Micromize bool
	N         int
}

// MapPair sketches both sequences, radix-sorts both by key, merge-walks
// to collect matches, and chains them without touching the index.
func (e *Engine) MapPair(lhs, rhs seqio.Sequence, opts MapPairOptions) ([]overlap.Overlap, error) {
	lhsRecs, err := e.sketcher.Sketch(lhs, sketch.Options{Micromize: opts.Micromize, N: opts.N})
	if err != nil {
		return nil, fmt.Errorf("engine: map_pair lhs %q: %w", lhs.Name, err)
	}
	if len(lhsRecs) == 0 {
		return nil, nil
	}

	rhsRecs, err := e.sketcher.Sketch(rhs, sketch.Options{})
	if err != nil {
		return nil, fmt.Errorf("engine: map_pair rhs %q: %w", rhs.Name, err)
	}
	if len(rhsRecs) == 0 {
		return nil, nil
	}

	maxBits := 2 * e.sketcher.ClampedK()
	radix.Sort(lhsRecs, maxBits, func(r sketch.Record) uint64 { return r.Key })
	radix.Sort(rhsRecs, maxBits, func(r sketch.Record) uint64 { return r.Key })

	matches := seed.CollectPair(rhs.ID, lhsRecs, rhsRecs)
	return chain.Chain(lhs.ID, matches, e.params), nil
}

// IndexSize returns the total number of records in the index.
func (e *Engine) IndexSize() uint64 { return e.idx.Size() }
