package atac

import (
	"context"
	"fmt"

	"github.com/grailbio/atacseq/flagstat"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// SAM flag masks for the final filter.
const (
	// Unmapped, secondary, QC-failed and duplicate records.
	excludeSingleEnd = uint16(sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate)
	// As above, plus records whose mate is unmapped.
	excludePairedEnd = excludeSingleEnd | uint16(sam.MateUnmapped)
	requireProper    = uint16(sam.ProperPair)
)

// filter converts, sorts and deduplicates the alignments, drops
// mitochondrial and low-quality records and, for paired-end runs, writes the
// fragment pairs.
func (p *Pipeline) filter(ctx context.Context, aln Alignment) (Filtered, error) {
	var (
		cfg = p.Config
		l   = p.Layout
		t   = cfg.Threads
		out = Filtered{BAM: l.Filtered(), Index: Index(l.Filtered())}
	)
	if cfg.Mode == PairedEnd {
		out.BEDPE = l.BEDPE()
	}
	logTo := p.logTo("samtools")

	if err := p.run(ctx, StageFilter, "samtools view", tool.SamtoolsView{
		Threads: t, BAM: true, Output: l.BAM(), Input: aln.SAM,
	}, logTo); err != nil {
		return out, err
	}
	if err := p.remove(ctx, StageFilter, aln.SAM); err != nil {
		return out, err
	}
	if err := p.run(ctx, StageFilter, "samtools sort", tool.SamtoolsSort{
		Threads: t, Output: l.Sorted(), Input: l.BAM(),
	}, logTo); err != nil {
		return out, err
	}
	if err := p.remove(ctx, StageFilter, l.BAM()); err != nil {
		return out, err
	}
	if err := p.flagstat(ctx, "sort", l.Sorted()); err != nil {
		return out, err
	}

	if err := p.dedup(ctx); err != nil {
		return out, err
	}
	if err := p.remove(ctx, StageFilter, l.Sorted()); err != nil {
		return out, err
	}
	if err := p.flagstat(ctx, "dedup", l.Dedup()); err != nil {
		return out, err
	}
	if err := p.run(ctx, StageFilter, "samtools index", tool.SamtoolsIndex{
		Threads: t, Input: l.Dedup(), Index: Index(l.Dedup()),
	}, logTo); err != nil {
		return out, err
	}

	if err := p.builtin(ctx, StageFilter, "write "+l.MitoBED(), func() error {
		return WriteNonMitoBED(ctx, l.Dedup(), l.MitoBED(), cfg.Mito)
	}); err != nil {
		return out, err
	}
	if err := p.run(ctx, StageFilter, "samtools view -L", tool.SamtoolsView{
		Threads: t, BAM: true, Output: l.NoMito(), Regions: l.MitoBED(), Input: l.Dedup(),
	}, logTo); err != nil {
		return out, err
	}
	if err := p.remove(ctx, StageFilter, l.Dedup(), Index(l.Dedup()), l.MitoBED()); err != nil {
		return out, err
	}
	if err := p.flagstat(ctx, "mito", l.NoMito()); err != nil {
		return out, err
	}

	view := tool.SamtoolsView{Threads: t, BAM: true, Output: out.BAM, Input: l.NoMito()}
	if cfg.Mode == PairedEnd {
		view.Require, view.Exclude = requireProper, excludePairedEnd
	} else {
		view.Exclude = excludeSingleEnd
		if cfg.SEProperPair {
			view.Require = requireProper
		}
	}
	if err := p.run(ctx, StageFilter, "samtools view -F", view, logTo); err != nil {
		return out, err
	}
	if err := p.remove(ctx, StageFilter, l.NoMito()); err != nil {
		return out, err
	}
	if err := p.flagstat(ctx, "filter", out.BAM); err != nil {
		return out, err
	}
	if err := p.run(ctx, StageFilter, "samtools index", tool.SamtoolsIndex{
		Threads: t, Input: out.BAM, Index: out.Index,
	}, logTo); err != nil {
		return out, err
	}

	if cfg.Mode != PairedEnd {
		return out, nil
	}
	if err := p.run(ctx, StageFilter, "samtools sort -n", tool.SamtoolsSort{
		Threads: t, ByName: true, Output: l.NameSorted(), Input: out.BAM,
	}, logTo); err != nil {
		return out, err
	}
	if err := p.run(ctx, StageFilter, "bedtools bamtobed -bedpe", tool.BamToBed{
		BEDPE: true, Input: l.NameSorted(),
	}, func(inv tool.Invocation) tool.Invocation {
		return inv.WithStdout(out.BEDPE).WithLog(l.Log("bedtools"))
	}); err != nil {
		return out, err
	}
	// The name-sorted BAM is always removed.
	if err := p.removeAlways(ctx, StageFilter, l.NameSorted()); err != nil {
		return out, err
	}
	return out, nil
}

// dedup removes (single-end) or marks (paired-end) PCR duplicates.
func (p *Pipeline) dedup(ctx context.Context) error {
	var (
		cfg = p.Config
		l   = p.Layout
	)
	if cfg.Mode == SingleEnd {
		return p.run(ctx, StageFilter, "samtools rmdup", tool.SamtoolsRmdup{
			SingleEnd: true, Input: l.Sorted(), Output: l.Dedup(),
		}, p.logTo("samtools"))
	}
	if cfg.MarkDup == MarkDupDoppelmark {
		if err := p.run(ctx, StageFilter, "samtools index", tool.SamtoolsIndex{
			Threads: cfg.Threads, Input: l.Sorted(), Index: Index(l.Sorted()),
		}, p.logTo("samtools")); err != nil {
			return err
		}
		if err := p.run(ctx, StageFilter, "doppelmark", tool.Doppelmark{
			Input:       l.Sorted(),
			Index:       Index(l.Sorted()),
			Output:      l.Dedup(),
			Metrics:     l.MarkDupMetrics(),
			Parallelism: cfg.Threads,
		}, p.logTo("doppelmark")); err != nil {
			return err
		}
		return p.remove(ctx, StageFilter, Index(l.Sorted()))
	}
	return p.run(ctx, StageFilter, "picard MarkDuplicates", tool.MarkDuplicates{
		Jar:              cfg.Picard,
		Input:            l.Sorted(),
		Output:           l.Dedup(),
		Metrics:          l.MarkDupMetrics(),
		RemoveDuplicates: false,
	}, p.logTo("picard"))
}

// flagstat appends a flagstat report of bam to the flagstat log and records
// it in the summary.
func (p *Pipeline) flagstat(ctx context.Context, step, bamPath string) error {
	return p.builtin(ctx, StageFilter, "flagstat "+bamPath, func() (err error) {
		fs, err := flagstat.ReadPath(ctx, bamPath, p.Config.Threads)
		if err != nil {
			return err
		}
		p.Summary.AddFlagstat(StageFilter, step, bamPath, fs)
		f, err := openLogFile(p.Layout.FlagstatLog())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		if _, err = fmt.Fprintf(f, "# %s: %s\n", step, bamPath); err != nil {
			return err
		}
		_, err = fs.WriteTo(f)
		return err
	})
}

// WriteNonMitoBED writes a BED file with one whole-reference interval for
// every reference in the header of the BAM file at bamPath except mito.
// samtools view -L then keeps every non-mitochondrial alignment.
func WriteNonMitoBED(ctx context.Context, bamPath, bedPath, mito string) (err error) {
	in, err := file.Open(ctx, bamPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return errors.E(errors.Invalid, err, bamPath)
	}
	defer br.Close() // nolint: errcheck
	refs := br.Header().Refs()

	out, err := file.Create(ctx, bedPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	var found bool
	for _, ref := range refs {
		if ref.Name() == mito {
			found = true
			continue
		}
		w.WriteString(ref.Name())
		w.WriteUint32(0)
		w.WriteUint32(uint32(ref.Len()))
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	if !found {
		log.Printf("%s: no reference named %s; no alignments are dropped as mitochondrial", bamPath, mito)
	}
	if len(refs) == 0 || found && len(refs) == 1 {
		return errors.E(errors.Invalid, bamPath+": no non-mitochondrial references in header")
	}
	return w.Flush()
}
