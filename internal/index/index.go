// Package index builds and queries the sharded inverted index from
// minimizer key to the run of its occurrences.
package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/vaser-bio/ramgo/internal/pool"
	"github.com/vaser-bio/ramgo/internal/radix"
	"github.com/vaser-bio/ramgo/internal/seqio"
	"github.com/vaser-bio/ramgo/internal/sketch"
)

// run names a contiguous, key-homogeneous slice of a shard's records:
// shard.runs[begin : begin+count].
type run struct {
	begin uint32
	count uint32
}

type shard struct {
	runs    []sketch.Record
	offsets map[uint64]run
	// over is a bitmap of keys whose run length exceeds occurrence, kept
	// in sync with occurrence by SetFrequencyCutoff. It is an accelerator
	// only: offsets remains the source of truth.
	over *roaring.Bitmap
}

// Index is the sharded inverted index. Shard selection is a pure function
// of key: shard = key & (shardCount-1), where shardCount = 1 <<
// min(14, 2*k).
type Index struct {
	k          int
	sketcher   sketch.Sketcher
	shardMask  uint64
	shards     []shard
	occurrence int64 // -1 means "no cutoff"
}

// New constructs an empty index sized for k-mers of length k, using sk to
// sketch sequences fed to Build.
func New(k int, sk sketch.Sketcher) *Index {
	shardBits := 2 * k
	if shardBits > 14 {
		shardBits = 14
	}
	if shardBits < 1 {
		shardBits = 1
	}
	shardCount := uint64(1) << uint(shardBits)

	shards := make([]shard, shardCount)
	for i := range shards {
		shards[i] = shard{offsets: make(map[uint64]run), over: roaring.New()}
	}

	return &Index{
		k:          k,
		sketcher:   sk,
		shardMask:  shardCount - 1,
		shards:     shards,
		occurrence: -1,
	}
}

// Build clears the index and repopulates it from sequences: a parallel
// sketch-and-scatter phase, a barrier, then a parallel per-shard
// sort-and-runify phase.
func (idx *Index) Build(sequences []seqio.Sequence, opts sketch.Options, p *pool.Pool) error {
	for i := range idx.shards {
		idx.shards[i].runs = idx.shards[i].runs[:0]
		idx.shards[i].offsets = make(map[uint64]run)
		idx.shards[i].over = roaring.New()
	}
	idx.occurrence = -1

	if len(sequences) == 0 {
		return nil
	}

	// Scatter: each task sketches one sequence into a local buffer; local
	// buffers are merged into shards serially afterward, so no shard-level
	// locking is needed during the parallel phase.
	local := make([][]sketch.Record, len(sequences))
	err := p.Each(len(sequences), func(i int) error {
		recs, err := idx.sketcher.Sketch(sequences[i], opts)
		if err != nil {
			return fmt.Errorf("index: build: %w", err)
		}
		local[i] = recs
		return nil
	})
	if err != nil {
		return err
	}

	for _, recs := range local {
		for _, r := range recs {
			bin := r.Key & idx.shardMask
			idx.shards[bin].runs = append(idx.shards[bin].runs, r)
		}
	}

	// Sort-and-runify: independent per shard.
	maxBits := 2 * idx.k
	if maxBits > 64 || maxBits <= 0 {
		maxBits = 64
	}
	err = p.Each(len(idx.shards), func(i int) error {
		s := &idx.shards[i]
		if len(s.runs) == 0 {
			return nil
		}
		radix.Sort(s.runs, maxBits, func(r sketch.Record) uint64 { return r.Key })

		c := uint32(0)
		for i := 0; i < len(s.runs); i++ {
			if i > 0 && s.runs[i-1].Key != s.runs[i].Key {
				s.offsets[s.runs[i-1].Key] = run{begin: uint32(i) - c, count: c}
				c = 0
			}
			if i == len(s.runs)-1 {
				s.offsets[s.runs[i].Key] = run{begin: uint32(i) - c, count: c + 1}
			}
			c++
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// Lookup returns the shard index, begin offset, and count of the run for
// key, or ok=false if key is absent.
func (idx *Index) Lookup(key uint64) (shardIdx int, begin, count uint32, ok bool) {
	bin := key & idx.shardMask
	r, present := idx.shards[bin].offsets[key]
	if !present {
		return 0, 0, 0, false
	}
	return int(bin), r.begin, r.count, true
}

// Records returns the backing run slice for a shard, for iterating
// occurrences found by Lookup.
func (idx *Index) Records(shardIdx int) []sketch.Record {
	return idx.shards[shardIdx].runs
}

// OverCutoff reports, using the roaring-bitmap accelerator when possible,
// whether key's run exceeds the current occurrence cutoff. It is exact:
// on a bitmap hit it falls back to the authoritative run length.
func (idx *Index) OverCutoff(key uint64) bool {
	if idx.occurrence < 0 {
		return false
	}
	bin := key & idx.shardMask
	s := &idx.shards[bin]
	// A miss here is exact: every over-cutoff key's truncated form is
	// added below, so absence proves the key is not over. A hit only
	// proves "maybe" (uint32 truncation can collide), so it still falls
	// through to the authoritative run-length check.
	if !s.over.Contains(uint32(key)) {
		return false
	}
	r, ok := s.offsets[key]
	if !ok {
		return false
	}
	return int64(r.count) > idx.occurrence
}

// SetFrequencyCutoff sets the occurrence cutoff to the (1-f) quantile of
// run lengths across all shards, plus one, and rebuilds the per-shard
// over-cutoff bitmaps. f == 0 disables the cutoff.
func (idx *Index) SetFrequencyCutoff(f float64) error {
	if f < 0 || f > 1 {
		return fmt.Errorf("index: invalid frequency %v: must be in [0,1]", f)
	}
	for i := range idx.shards {
		idx.shards[i].over = roaring.New()
	}
	if f == 0 {
		idx.occurrence = -1
		return nil
	}

	var occurrences []uint32
	for i := range idx.shards {
		for _, r := range idx.shards[i].offsets {
			occurrences = append(occurrences, r.count)
		}
	}
	if len(occurrences) == 0 {
		idx.occurrence = -1
		return nil
	}

	sort.Slice(occurrences, func(i, j int) bool { return occurrences[i] < occurrences[j] })
	pos := int(float64(len(occurrences)) * (1 - f))
	if pos >= len(occurrences) {
		pos = len(occurrences) - 1
	}
	idx.occurrence = int64(occurrences[pos]) + 1

	for i := range idx.shards {
		s := &idx.shards[i]
		for key, r := range s.offsets {
			if int64(r.count) > idx.occurrence {
				s.over.Add(uint32(key))
			}
		}
	}
	return nil
}

// Occurrence returns the current cutoff, or -1 if disabled.
func (idx *Index) Occurrence() int64 { return idx.occurrence }

// Size returns the total number of records across all shards.
func (idx *Index) Size() uint64 {
	var n uint64
	for i := range idx.shards {
		n += uint64(len(idx.shards[i].runs))
	}
	return n
}

// ShardMask exposes the shard-selection mask (key & ShardMask), needed by
// callers computing a shard index for a key outside of Lookup.
func (idx *Index) ShardMask() uint64 { return idx.shardMask }
