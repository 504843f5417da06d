// Package seqio is the file-parsing and Sequence-ingestion layer around
// the core engine.
package seqio

// Sequence is the engine's input unit: an externally assigned, densely
// packed monotone id, a display name, and raw (unencoded) sequence bytes.
type Sequence struct {
	ID   uint32
	Name string
	Data []byte
}

// Len returns the number of bases in the sequence.
func (s Sequence) Len() int {
	return len(s.Data)
}
