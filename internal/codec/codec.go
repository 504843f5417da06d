// Package codec maps ASCII DNA bytes to 2-bit nucleotide codes.
package codec

import "fmt"

// Invalid marks a byte with no entry in table.
const Invalid uint8 = 255

// table replicates the ram/minimap2 seq_nt4_table byte-for-byte: A/C/G/T
// map to 0/1/2/3, common IUPAC ambiguity letters and '-' collapse to one
// of the four bases, everything else (including bytes >= 128) is Invalid.
var table = [256]uint8{
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 0, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 0, 1, 1, 0, 255, 255, 2, 3, 255, 255, 2, 255, 1, 0, 255,
	255, 255, 0, 1, 3, 3, 2, 0, 255, 3, 255, 255, 255, 255, 255, 255,
	255, 0, 1, 1, 0, 255, 255, 2, 3, 255, 255, 2, 255, 1, 0, 255,
	255, 255, 0, 1, 3, 3, 2, 0, 255, 3, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
}

// Encode returns the 2-bit code for b, or an error if b has no entry.
func Encode(b byte) (uint8, error) {
	c := table[b]
	if c == Invalid {
		return 0, fmt.Errorf("codec: invalid character %q", b)
	}
	return c, nil
}

// Complement returns the 2-bit complement of code (A<->T, C<->G).
func Complement(code uint8) uint8 {
	return code ^ 3
}
