package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// PosType is BEDUnion's coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// maxLineLen bounds the length of a single BED line.
const maxLineLen = 1 << 20

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// isHeader reports whether a BED line carries no interval.
func isHeader(line []byte) bool {
	if len(line) == 0 || line[0] == '#' {
		return true
	}
	s := gunsafe.BytesToString(line)
	return len(s) >= 5 && s[:5] == "track" || len(s) >= 7 && s[:7] == "browser"
}

// parseCoords parses a start/end token pair.
func parseCoords(startTok, endTok []byte, lineIdx int) (start, end PosType, err error) {
	s, err := strconv.Atoi(gunsafe.BytesToString(startTok))
	if err != nil {
		return 0, 0, errors.E(errors.Invalid, err, fmt.Sprintf("line %d", lineIdx))
	}
	e, err := strconv.Atoi(gunsafe.BytesToString(endTok))
	if err != nil {
		return 0, 0, errors.E(errors.Invalid, err, fmt.Sprintf("line %d", lineIdx))
	}
	if s < 0 || e < s || e >= posTypeMax {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("invalid coordinate pair %d-%d on line %d", s, e, lineIdx))
	}
	return PosType(s), PosType(e), nil
}

// searchPosType returns the index of the first element of a[] greater than
// x, or len(a) if there is none.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] > x })
}

// BEDUnion is a collection of length-2N sequences, one per chromosome, where
// N is the number of disjoint intervals on that chromosome.  The (0-based)
// start position of interval #k is in element [2k] and the end position is
// in element [2k+1], and the intervals are stored in increasing order.  A
// position p is covered iff the number of endpoints <= p is odd.
type BEDUnion struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	// Always initialized.
	nameMap map[string][]PosType
}

type span struct {
	start, end PosType
}

// NewBEDUnion loads the intervals from a BED file, merging touching and
// overlapping intervals and eliminating empty ones.  The input need not be
// sorted.  Lines starting with '#', "track" or "browser" are skipped, as are
// columns past the third.
func NewBEDUnion(r io.Reader) (*BEDUnion, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineLen)

	var (
		tokens  [3][]byte
		spans   = make(map[string][]span)
		lineIdx int
	)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || isHeader(tokens[0]) {
			continue
		}
		if nToken != 3 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.NewBEDUnion: line %d has fewer than 3 columns", lineIdx))
		}
		start, end, err := parseCoords(tokens[1], tokens[2], lineIdx)
		if err != nil {
			return nil, err
		}
		chr := string(tokens[0])
		if start == end {
			if _, ok := spans[chr]; !ok {
				spans[chr] = nil
			}
			continue
		}
		spans[chr] = append(spans[chr], span{start, end})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "interval.NewBEDUnion")
	}

	u := &BEDUnion{nameMap: make(map[string][]PosType, len(spans))}
	var totBases int64
	for chr, s := range spans {
		sort.Slice(s, func(i, j int) bool { return s[i].start < s[j].start })
		endpoints := make([]PosType, 0, 2*len(s))
		for _, iv := range s {
			n := len(endpoints)
			if n > 0 && iv.start <= endpoints[n-1] {
				if iv.end > endpoints[n-1] {
					totBases += int64(iv.end - endpoints[n-1])
					endpoints[n-1] = iv.end
				}
				continue
			}
			endpoints = append(endpoints, iv.start, iv.end)
			totBases += int64(iv.end - iv.start)
		}
		u.nameMap[chr] = endpoints
	}
	log.Debug.Printf("BED loaded, %d chromosome(s), %d base(s) covered", len(u.nameMap), totBases)
	return u, nil
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped files are decompressed.
func NewBEDUnionFromPath(ctx context.Context, path string) (u *BEDUnion, err error) {
	infile, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, errors.E(err, path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	if u, err = NewBEDUnion(reader); err != nil {
		return nil, errors.E(err, path)
	}
	return u, nil
}

// Chromosomes returns the number of chromosomes mentioned by the BED.
func (u *BEDUnion) Chromosomes() int {
	return len(u.nameMap)
}

// ContainsByName checks whether the (0-based) position pos on chromosome
// chrName is covered by the BEDUnion.
func (u *BEDUnion) ContainsByName(chrName string, pos PosType) bool {
	endpoints := u.nameMap[chrName]
	if endpoints == nil {
		return false
	}
	return searchPosType(endpoints, pos)&1 == 1
}

// OverlapsByName checks whether the half-open interval [start, end) on
// chromosome chrName shares at least one base with the BEDUnion.  Empty
// intervals never overlap.
func (u *BEDUnion) OverlapsByName(chrName string, start, end PosType) bool {
	if end <= start {
		return false
	}
	endpoints := u.nameMap[chrName]
	if endpoints == nil {
		return false
	}
	idx := searchPosType(endpoints, start)
	if idx&1 == 1 {
		return true
	}
	// start lies in a gap; the next interval must begin before end.
	return idx < len(endpoints) && endpoints[idx] < end
}

// Subtract copies every interval line of r to w that does not overlap u.
// Lines are copied verbatim, so any BED-like format whose first three
// columns are chrom, start, end (broadPeak, narrowPeak) is accepted.
// Header lines are copied unchanged.  It returns the number of interval lines
// kept and dropped.
func Subtract(u *BEDUnion, r io.Reader, w io.Writer) (kept, dropped int64, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineLen)
	bw := bufio.NewWriter(w)

	var (
		tokens  [3][]byte
		lineIdx int
	)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken > 0 && !isHeader(tokens[0]) {
			if nToken != 3 {
				return kept, dropped, errors.E(errors.Invalid, fmt.Sprintf("interval.Subtract: line %d has fewer than 3 columns", lineIdx))
			}
			start, end, err := parseCoords(tokens[1], tokens[2], lineIdx)
			if err != nil {
				return kept, dropped, err
			}
			if u.OverlapsByName(gunsafe.BytesToString(tokens[0]), start, end) {
				dropped++
				continue
			}
			kept++
		} else if nToken == 0 {
			continue
		}
		if _, err := bw.Write(curLine); err != nil {
			return kept, dropped, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return kept, dropped, err
		}
	}
	if err := scanner.Err(); err != nil {
		return kept, dropped, errors.E(err, "interval.Subtract")
	}
	return kept, dropped, bw.Flush()
}
