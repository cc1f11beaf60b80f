package fastq

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// Stats summarizes a FASTQ stream.
type Stats struct {
	Reads int64
	Bases int64
}

// MeanLength returns the average read length, or 0 for an empty stream.
func (s Stats) MeanLength() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Bases) / float64(s.Reads)
}

// Count returns the number of reads and bases in the FASTQ stream r.
func Count(r io.Reader) (Stats, error) {
	var (
		stats Stats
		read  Read
		sc    = NewScanner(r, 0)
	)
	for {
		n, ok := sc.scanRead(&read)
		if !ok {
			break
		}
		stats.Reads++
		stats.Bases += int64(n)
	}
	if err := sc.Err(); err != nil {
		return stats, errors.E(errors.Invalid, err, fmt.Sprintf("line %d", sc.Line()))
	}
	return stats, nil
}

// CountPair counts a pair of FASTQ streams, requiring that they hold the same
// number of reads.
func CountPair(r1, r2 io.Reader) (s1, s2 Stats, err error) {
	var (
		read1, read2 Read
		sc           = NewPairScanner(r1, r2, 0)
	)
	for {
		n1, n2, ok := sc.scanPair(&read1, &read2)
		if !ok {
			break
		}
		s1.Reads++
		s1.Bases += int64(n1)
		s2.Reads++
		s2.Bases += int64(n2)
	}
	if err = sc.Err(); err != nil {
		err = errors.E(errors.Invalid, err, fmt.Sprintf("after %d pairs", s1.Reads))
	}
	return s1, s2, err
}

// open opens path for reading, decompressing gzip files.  The returned
// function closes the file.
func open(ctx context.Context, path string) (io.Reader, func() error, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	r := io.Reader(f.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = f.Close(ctx)
			return nil, nil, errors.E(errors.Invalid, err, path)
		}
		return gz, func() error {
			_ = gz.Close()
			return f.Close(ctx)
		}, nil
	}
	return r, func() error { return f.Close(ctx) }, nil
}

// CountPath is Count for a (possibly gzipped) FASTQ file.
func CountPath(ctx context.Context, path string) (Stats, error) {
	r, closer, err := open(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	stats, err := Count(r)
	if cerr := closer(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, errors.E(err, path)
	}
	return stats, nil
}

// CountPairPath is CountPair for a pair of (possibly gzipped) FASTQ files.
func CountPairPath(ctx context.Context, path1, path2 string) (s1, s2 Stats, err error) {
	r1, close1, err := open(ctx, path1)
	if err != nil {
		return s1, s2, err
	}
	defer func() {
		if cerr := close1(); err == nil {
			err = cerr
		}
	}()
	r2, close2, err := open(ctx, path2)
	if err != nil {
		return s1, s2, err
	}
	defer func() {
		if cerr := close2(); err == nil {
			err = cerr
		}
	}()
	if s1, s2, err = CountPair(r1, r2); err != nil {
		err = errors.E(err, path1, path2)
	}
	return s1, s2, err
}
