package sourcemap

import (
	"fmt"
	"strings"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		idx[base64Alphabet[i]] = int8(i)
	}
	return idx
}()

// Segment is one decoded mapping. Lines and columns are zero-based and
// absolute; Source and Name index the owning map's arrays.
type Segment struct {
	GenLine    int
	GenColumn  int
	HasSource  bool
	Source     int
	OrigLine   int
	OrigColumn int
	HasName    bool
	Name       int
}

// DecodeMappings decodes a mappings string into absolute segments in
// generated order. Indices and positions that resolve below zero are errors.
func DecodeMappings(mappings string) ([]Segment, error) {
	var (
		segs                              []Segment
		line, genCol                      int
		source, origLine, origCol, nameIx int
	)

	i := 0
	for i < len(mappings) {
		switch mappings[i] {
		case ';':
			line++
			genCol = 0
			i++
			continue
		case ',':
			i++
			continue
		}

		var fields [5]int
		n := 0
		for i < len(mappings) && mappings[i] != ',' && mappings[i] != ';' {
			if n == len(fields) {
				return nil, fmt.Errorf("segment at line %d has more than 5 fields", line)
			}
			v, next, err := decodeVLQ(mappings, i)
			if err != nil {
				return nil, err
			}
			fields[n] = v
			n++
			i = next
		}

		switch n {
		case 1, 4, 5:
		default:
			return nil, fmt.Errorf("segment at line %d has %d fields", line, n)
		}

		genCol += fields[0]
		seg := Segment{GenLine: line, GenColumn: genCol}
		if n >= 4 {
			source += fields[1]
			origLine += fields[2]
			origCol += fields[3]
			seg.HasSource = true
			seg.Source = source
			seg.OrigLine = origLine
			seg.OrigColumn = origCol
			if source < 0 || origLine < 0 || origCol < 0 {
				return nil, fmt.Errorf("segment at line %d points before the start of its source", line)
			}
		}
		if n == 5 {
			nameIx += fields[4]
			seg.HasName = true
			seg.Name = nameIx
			if nameIx < 0 {
				return nil, fmt.Errorf("segment at line %d has negative name index %d", line, nameIx)
			}
		}
		if genCol < 0 {
			return nil, fmt.Errorf("segment at line %d has negative column %d", line, genCol)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// EncodeMappings encodes segments, which must be sorted by generated
// position, into a mappings string.
func EncodeMappings(segs []Segment) string {
	var sb strings.Builder
	var (
		line, genCol                      int
		source, origLine, origCol, nameIx int
	)

	first := true
	for _, s := range segs {
		for line < s.GenLine {
			sb.WriteByte(';')
			line++
			genCol = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false

		encodeVLQ(&sb, s.GenColumn-genCol)
		genCol = s.GenColumn
		if !s.HasSource {
			continue
		}
		encodeVLQ(&sb, s.Source-source)
		encodeVLQ(&sb, s.OrigLine-origLine)
		encodeVLQ(&sb, s.OrigColumn-origCol)
		source, origLine, origCol = s.Source, s.OrigLine, s.OrigColumn
		if s.HasName {
			encodeVLQ(&sb, s.Name-nameIx)
			nameIx = s.Name
		}
	}
	return sb.String()
}

func encodeVLQ(sb *strings.Builder, v int) {
	vlq := v << 1
	if v < 0 {
		vlq = (-v << 1) | 1
	}
	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq > 0 {
			digit |= 32
		}
		sb.WriteByte(base64Alphabet[digit])
		if vlq == 0 {
			return
		}
	}
}

func decodeVLQ(s string, i int) (int, int, error) {
	result, shift := 0, 0
	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("unterminated VLQ value")
		}
		d := base64Index[s[i]]
		if d < 0 {
			return 0, i, fmt.Errorf("invalid base64 character %q at offset %d", s[i], i)
		}
		i++
		result += int(d&31) << shift
		shift += 5
		if d&32 == 0 {
			break
		}
	}
	if result&1 == 1 {
		return -(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
