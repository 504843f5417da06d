package sketch

import (
	"testing"

	"github.com/vaser-bio/ramgo/internal/seqio"
)

func mustSketch(t *testing.T, s Sketcher, seq seqio.Sequence, opts Options) []Record {
	t.Helper()
	recs, err := s.Sketch(seq, opts)
	if err != nil {
		t.Fatalf("Sketch: %v", err)
	}
	return recs
}

func TestSketchDeterministic(t *testing.T) {
	s := Sketcher{K: 5, W: 4}
	seq := seqio.Sequence{ID: 0, Name: "r", Data: []byte("ACGTACGTTGCATGCATGCACGTACGTAGCATGC")}

	a := mustSketch(t, s, seq, Options{})
	b := mustSketch(t, s, seq, Options{})

	if len(a) != len(b) {
		t.Fatalf("nondeterministic length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("nondeterministic record at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
	if len(a) == 0 {
		t.Fatal("expected at least one minimizer")
	}
}

func reverseComplement(data []byte) []byte {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A'}
	out := make([]byte, len(data))
	for i, b := range data {
		out[len(data)-1-i] = comp[b]
	}
	return out
}

// TestSketchCanonicalSymmetry checks that sketching a sequence and its
// reverse complement yields the same multiset of hashed keys, with strand
// bits flipped and positions remapped as i -> len(s)-i-k.
func TestSketchCanonicalSymmetry(t *testing.T) {
	s := Sketcher{K: 5, W: 3}
	data := []byte("ACGTACGTTGCATGCATGCACGTACGTAGCATGC")
	fwd := mustSketch(t, s, seqio.Sequence{ID: 0, Name: "f", Data: data}, Options{})
	rev := mustSketch(t, s, seqio.Sequence{ID: 0, Name: "r", Data: reverseComplement(data)}, Options{})

	if len(fwd) != len(rev) {
		t.Fatalf("minimizer count differs: fwd=%d rev=%d", len(fwd), len(rev))
	}

	type keyed struct {
		key      uint64
		strand   uint8
		position uint32
	}
	fwdSet := make(map[keyed]bool)
	for _, r := range fwd {
		fwdSet[keyed{r.Key, r.Strand(), r.Position()}] = true
	}

	n := len(data)
	k := 5
	for _, r := range rev {
		remapped := uint32(n) - r.Position() - uint32(k)
		want := keyed{r.Key, r.Strand() ^ 1, remapped}
		if !fwdSet[want] {
			t.Errorf("reverse-complement record %+v (remapped %+v) has no forward counterpart", r, want)
		}
	}
}

func TestSketchEmptyForShortSequence(t *testing.T) {
	s := Sketcher{K: 15, W: 5}
	recs, err := s.Sketch(seqio.Sequence{ID: 0, Name: "short", Data: []byte("ACGT")}, Options{})
	if err != nil {
		t.Fatalf("Sketch: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d records for a sequence shorter than k, want 0", len(recs))
	}
}

// TestSketchHPCEquivalence checks that homopolymer compression makes a run
// of a repeated base collapse to a single occurrence for minimizer purposes.
func TestSketchHPCEquivalence(t *testing.T) {
	s := Sketcher{K: 4, W: 3, HPC: true}
	plain := seqio.Sequence{ID: 0, Name: "plain", Data: []byte("ACGTTGCATGCACGTAGCATGCA")}
	withRun := seqio.Sequence{ID: 0, Name: "run", Data: []byte("AAAAACGTTGCATGCACGTAGCATGCA")}

	a := mustSketch(t, s, plain, Options{})
	b := mustSketch(t, s, withRun, Options{})

	keysOf := func(recs []Record) map[uint64]int {
		m := make(map[uint64]int)
		for _, r := range recs {
			m[r.Key]++
		}
		return m
	}
	ka, kb := keysOf(a), keysOf(b)
	for k, count := range ka {
		if kb[k] < count {
			t.Errorf("key %d appears %d times without a leading homopolymer run, only %d with one", k, count, kb[k])
		}
	}
}

func TestSketchInvalidCharacter(t *testing.T) {
	s := Sketcher{K: 4, W: 3}
	_, err := s.Sketch(seqio.Sequence{ID: 0, Name: "bad", Data: []byte("ACGTXACGT")}, Options{})
	if err == nil {
		t.Fatal("expected an error for an invalid base")
	}
}

func TestSketchMicromizePreservesBoundaries(t *testing.T) {
	s := Sketcher{K: 4, W: 2}
	data := []byte("ACGTACGTTGCATGCATGCACGTACGTAGCATGCACGTTGCATGCATGCACGTACGTAGCATGCA")
	seq := seqio.Sequence{ID: 0, Name: "long", Data: data}

	full := mustSketch(t, s, seq, Options{})
	if len(full) < 10 {
		t.Skip("not enough minimizers extracted to exercise micromization")
	}

	micro := mustSketch(t, s, seq, Options{Micromize: true, MicromizeFactor: 0.5, N: 2})
	if len(micro) == 0 {
		t.Fatal("expected micromization to keep at least some records")
	}
	if len(micro) >= len(full) {
		t.Fatalf("micromize did not shrink the sketch: %d vs %d", len(micro), len(full))
	}

	last := full[len(full)-1]
	found := false
	for _, r := range micro {
		if r == last {
			found = true
			break
		}
	}
	if !found {
		t.Error("micromize did not preserve the last emitted minimizer verbatim")
	}
}

func TestSketchReduceShrinksOrPreserves(t *testing.T) {
	s := Sketcher{K: 5, W: 3, ReduceWinSz: 3}
	data := []byte("ACGTACGTTGCATGCATGCACGTACGTAGCATGCACGTTGCATGCATGCACGTACGTAGCATGCA")
	seq := seqio.Sequence{ID: 0, Name: "long", Data: data}

	reduced := mustSketch(t, s, seq, Options{})

	s2 := Sketcher{K: 5, W: 3}
	full := mustSketch(t, s2, seq, Options{})

	if len(reduced) > len(full) {
		t.Fatalf("reduce grew the sketch: %d > %d", len(reduced), len(full))
	}
}
