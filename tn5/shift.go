// Package tn5 corrects alignment coordinates for the Tn5 transposase
// insertion geometry. Tn5 binds as a dimer and inserts adapters 9 bp apart,
// so the center of the insertion is 4 bp downstream of a forward-strand read
// start and 5 bp upstream of a reverse-strand read end.
package tn5

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
)

const (
	// Forward is the offset applied to forward-strand coordinates.
	Forward = 4
	// Reverse is the offset subtracted from reverse-strand coordinates.
	Reverse = 5
)

// Interval is a 0-based, half-open genomic interval with a strand.
type Interval struct {
	Chrom      string
	Start, End int
	Strand     byte
}

// ShiftRead corrects a single-end read: a forward-strand read has its start
// moved forward by Forward bases, a reverse-strand read has its end moved
// back by Reverse bases. Reads with no strand are returned unchanged. ok is
// false if the corrected interval is empty.
func ShiftRead(r Interval) (shifted Interval, ok bool) {
	switch r.Strand {
	case '+':
		r.Start += Forward
	case '-':
		r.End -= Reverse
	}
	return r, r.Start >= 0 && r.End > r.Start
}

// ShiftFragment corrects a paired-end fragment spanning both mates. Both ends
// of a forward-strand fragment move forward by Forward bases; both ends of a
// reverse-strand fragment move back by Reverse bases. The start is clamped
// at zero. ok is false if the corrected end is not positive.
func ShiftFragment(f Interval) (shifted Interval, ok bool) {
	switch f.Strand {
	case '+':
		f.Start += Forward
		f.End += Forward
	case '-':
		f.Start -= Reverse
		f.End -= Reverse
	}
	if f.Start < 0 {
		f.Start = 0
	}
	return f, f.End > 0 && f.End > f.Start
}

// Counts reports how many records were read and written by a shift.
type Counts struct {
	In, Out int64
}

// Dropped is the number of records that were discarded.
func (c Counts) Dropped() int64 { return c.In - c.Out }

// ShiftBED reads BED6 records (as written by "bedtools bamtobed") from r,
// corrects them with ShiftRead and writes the surviving records to w. The
// name, score and any extra columns are passed through.
func ShiftBED(r io.Reader, w io.Writer) (Counts, error) {
	return shift(r, w, 6, func(cols [][]byte, out *bufio.Writer) (bool, error) {
		iv, err := parse(cols[0], cols[1], cols[2], cols[5])
		if err != nil {
			return false, err
		}
		iv, ok := ShiftRead(iv)
		if !ok {
			return false, nil
		}
		writeInterval(out, iv)
		for _, col := range cols[3:] {
			out.WriteByte('\t')
			out.Write(col)
		}
		return true, out.WriteByte('\n')
	})
}

// ShiftBEDPE reads BEDPE records (as written by "bedtools bamtobed -bedpe")
// from r and writes one 3-column fragment per pair to w, corrected with
// ShiftFragment. The fragment spans both mates and takes the strand of the
// first mate. Pairs with an unmapped mate or mates on different chromosomes
// are dropped.
func ShiftBEDPE(r io.Reader, w io.Writer) (Counts, error) {
	return shift(r, w, 10, func(cols [][]byte, out *bufio.Writer) (bool, error) {
		if !bytes.Equal(cols[0], cols[3]) || isUnmapped(cols[0]) {
			return false, nil
		}
		m1, err := parse(cols[0], cols[1], cols[2], cols[8])
		if err != nil {
			return false, err
		}
		m2, err := parse(cols[3], cols[4], cols[5], cols[9])
		if err != nil {
			return false, err
		}
		if m1.Start < 0 || m2.Start < 0 {
			return false, nil
		}
		frag := m1
		if m2.Start < frag.Start {
			frag.Start = m2.Start
		}
		if m2.End > frag.End {
			frag.End = m2.End
		}
		frag, ok := ShiftFragment(frag)
		if !ok {
			return false, nil
		}
		writeInterval(out, frag)
		return true, out.WriteByte('\n')
	})
}

func isUnmapped(chrom []byte) bool {
	return len(chrom) == 0 || (len(chrom) == 1 && chrom[0] == '.')
}

// shift drives a line-oriented transform. Blank lines, comments and track
// lines are skipped.
func shift(r io.Reader, w io.Writer, minCols int, fn func(cols [][]byte, out *bufio.Writer) (bool, error)) (Counts, error) {
	var (
		counts  Counts
		scanner = bufio.NewScanner(r)
		out     = bufio.NewWriter(w)
		lineNum int
	)
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' || bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser")) {
			continue
		}
		cols := bytes.Split(line, []byte{'\t'})
		if len(cols) < minCols {
			return counts, errors.E(errors.Invalid, fmt.Sprintf("line %d: expected at least %d columns, found %d", lineNum, minCols, len(cols)))
		}
		counts.In++
		ok, err := fn(cols, out)
		if err != nil {
			return counts, errors.E(err, fmt.Sprintf("line %d", lineNum))
		}
		if ok {
			counts.Out++
		}
	}
	if err := scanner.Err(); err != nil {
		return counts, err
	}
	return counts, out.Flush()
}

func parse(chrom, start, end, strand []byte) (Interval, error) {
	iv := Interval{Chrom: string(chrom)}
	var err error
	if iv.Start, err = strconv.Atoi(string(start)); err != nil {
		return iv, errors.E(errors.Invalid, err)
	}
	if iv.End, err = strconv.Atoi(string(end)); err != nil {
		return iv, errors.E(errors.Invalid, err)
	}
	switch {
	case len(strand) == 1 && (strand[0] == '+' || strand[0] == '-'):
		iv.Strand = strand[0]
	case len(strand) == 1 && strand[0] == '.':
	default:
		return iv, errors.E(errors.Invalid, "bad strand", string(strand))
	}
	return iv, nil
}

func writeInterval(out *bufio.Writer, iv Interval) {
	out.WriteString(iv.Chrom)
	out.WriteByte('\t')
	out.WriteString(strconv.Itoa(iv.Start))
	out.WriteByte('\t')
	out.WriteString(strconv.Itoa(iv.End))
}
