package seqio

import (
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

// ReadFile loads every record from a FASTA or FASTQ file at path
// (transparently gzip-decompressed by fastx.NewReader when the file has a
// .gz suffix) into a slice of Sequence, assigning ids by read order
// starting at startID.
func ReadFile(path string, startID uint32) ([]Sequence, error) {
	reader, err := fastx.NewReader(nil, path, "")
	if err != nil {
		return nil, fmt.Errorf("seqio: open %s: %w", path, err)
	}
	defer reader.Close()

	var out []Sequence
	id := startID
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("seqio: read %s: %w", path, err)
		}

		data := make([]byte, len(record.Seq.Seq))
		copy(data, record.Seq.Seq)
		out = append(out, Sequence{
			ID:   id,
			Name: string(record.Name),
			Data: data,
		})
		id++
	}
	return out, nil
}

// ReadFiles loads and concatenates ReadFile's result for every path, in
// order, continuing the id sequence across files so the result stays
// densely packed and monotone as the core requires.
func ReadFiles(paths []string) ([]Sequence, error) {
	var out []Sequence
	var nextID uint32
	for _, p := range paths {
		seqs, err := ReadFile(p, nextID)
		if err != nil {
			return nil, err
		}
		out = append(out, seqs...)
		nextID += uint32(len(seqs))
	}
	return out, nil
}
