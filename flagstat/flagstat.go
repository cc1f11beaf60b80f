// Package flagstat computes samtools-flagstat style alignment summaries
// from BAM files.
package flagstat

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// Stats holds flag counts for one QC class of records.
type Stats struct {
	Total         int64
	Mapped        int64
	Duplicate     int64
	Secondary     int64
	Supplementary int64
	Paired        int64
	ProperPair    int64
	Singleton     int64
	PairMapped    int64
	DiffChr       int64
	DiffChrHighQ  int64
	Read1, Read2  int64
}

// Flagstat splits counts by the QC-fail flag.
type Flagstat struct {
	Passed, Failed Stats
}

func (stat *Stats) record(r *sam.Record) {
	stat.Total++
	f := r.Flags
	if (f & sam.Unmapped) == 0 {
		stat.Mapped++
	}
	if (f & sam.Duplicate) != 0 {
		stat.Duplicate++
	}
	if (f & sam.Secondary) != 0 {
		stat.Secondary++
	} else if (f & sam.Supplementary) != 0 {
		stat.Supplementary++
	} else if (f & sam.Paired) != 0 {
		stat.Paired++
		if (f&sam.ProperPair) != 0 && (f&sam.Unmapped) == 0 {
			stat.ProperPair++
		}
		if (f & sam.Read1) != 0 {
			stat.Read1++
		}
		if (f & sam.Read2) != 0 {
			stat.Read2++
		}
		if (f&sam.MateUnmapped) != 0 && (f&sam.Unmapped) == 0 {
			stat.Singleton++
		}
		if (f&sam.Unmapped) == 0 && (f&sam.MateUnmapped) == 0 {
			stat.PairMapped++
			if r.Ref.ID() != r.MateRef.ID() {
				stat.DiffChr++
				if r.MapQ >= 5 {
					stat.DiffChrHighQ++
				}
			}
		}
	}
}

// Add counts a single record.
func (fs *Flagstat) Add(r *sam.Record) {
	if (r.Flags & sam.QCFail) != 0 {
		fs.Failed.record(r)
	} else {
		fs.Passed.record(r)
	}
}

// Read counts every record of the BAM stream r.  threads is passed to the
// BGZF decompressor.
func Read(r io.Reader, threads int) (Flagstat, error) {
	var fs Flagstat
	br, err := bam.NewReader(r, threads)
	if err != nil {
		return fs, errors.E(errors.Invalid, err, "flagstat: open BAM")
	}
	defer br.Close() // nolint: errcheck
	for {
		rec, err := br.Read()
		if err == io.EOF {
			return fs, nil
		}
		if err != nil {
			return fs, errors.E(err, fmt.Sprintf("flagstat: record %d", fs.Passed.Total+fs.Failed.Total))
		}
		fs.Add(rec)
		sam.PutInFreePool(rec)
	}
}

// ReadPath is Read for a BAM file path.
func ReadPath(ctx context.Context, path string, threads int) (fs Flagstat, err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return fs, err
	}
	defer file.CloseAndReport(ctx, f, &err)
	if fs, err = Read(f.Reader(ctx), threads); err != nil {
		err = errors.E(err, path)
	}
	return fs, err
}

func percent(a, b int64) string {
	if b == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", float64(a)*100/float64(b))
}

// WriteTo writes the report in the samtools flagstat layout.
func (fs Flagstat) WriteTo(w io.Writer) (int64, error) {
	qc, failed := fs.Passed, fs.Failed
	var (
		n   int64
		err error
	)
	printf := func(format string, args ...interface{}) {
		if err != nil {
			return
		}
		var m int
		m, err = fmt.Fprintf(w, format, args...)
		n += int64(m)
	}
	printf("%d + %d in total (QC-passed reads + QC-failed reads)\n", qc.Total, failed.Total)
	printf("%d + %d secondary\n", qc.Secondary, failed.Secondary)
	printf("%d + %d supplementary\n", qc.Supplementary, failed.Supplementary)
	printf("%d + %d duplicates\n", qc.Duplicate, failed.Duplicate)
	printf("%d + %d mapped (%s:%s)\n", qc.Mapped, failed.Mapped,
		percent(qc.Mapped, qc.Total), percent(failed.Mapped, failed.Total))
	printf("%d + %d paired in sequencing\n", qc.Paired, failed.Paired)
	printf("%d + %d read1\n", qc.Read1, failed.Read1)
	printf("%d + %d read2\n", qc.Read2, failed.Read2)
	printf("%d + %d properly paired (%s:%s)\n", qc.ProperPair, failed.ProperPair,
		percent(qc.ProperPair, qc.Paired), percent(failed.ProperPair, failed.Paired))
	printf("%d + %d with itself and mate mapped\n", qc.PairMapped, failed.PairMapped)
	printf("%d + %d singletons (%s:%s)\n", qc.Singleton, failed.Singleton,
		percent(qc.Singleton, qc.Total), percent(failed.Singleton, failed.Total))
	printf("%d + %d with mate mapped to a different chr\n", qc.DiffChr, failed.DiffChr)
	printf("%d + %d with mate mapped to a different chr (mapQ>=5)\n", qc.DiffChrHighQ, failed.DiffChrHighQ)
	return n, err
}
