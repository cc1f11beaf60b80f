package atac

import (
	"context"

	"github.com/grailbio/atacseq/interval"
	"github.com/grailbio/atacseq/tn5"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Single-end MACS2 settings: reads are centered on the Tn5 insertion and
// extended to a nucleosome-free fragment.
const (
	singleEndShift   = -37
	singleEndExtSize = 73
)

// peaks Tn5-shifts the reads or fragments, calls broad peaks and removes
// the blacklisted ones.
func (p *Pipeline) peaks(ctx context.Context, in Filtered) (Peaks, error) {
	var (
		cfg = p.Config
		l   = p.Layout
		out = Peaks{Shifted: l.Shifted(), Raw: l.Peaks(), Filtered: l.FilteredPeaks()}
	)

	source, format, shift := in.BEDPE, "BEDPE", tn5.ShiftBEDPE
	if cfg.Mode == SingleEnd {
		source, format, shift = l.BED(), "BED", tn5.ShiftBED
		if err := p.run(ctx, StagePeaks, "bedtools bamtobed", tool.BamToBed{Input: in.BAM},
			func(inv tool.Invocation) tool.Invocation {
				return inv.WithStdout(source).WithLog(l.Log("bedtools"))
			}); err != nil {
			return out, err
		}
	}

	err := p.builtin(ctx, StagePeaks, "tn5 shift "+source, func() (err error) {
		src, err := file.Open(ctx, source)
		if err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, src, &err)
		dst, err := file.Create(ctx, out.Shifted)
		if err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, dst, &err)
		counts, err := shift(src.Reader(ctx), dst.Writer(ctx))
		if err != nil {
			return err
		}
		log.Printf("tn5 shift: %d of %d intervals kept", counts.Out, counts.In)
		p.Summary.Add(StagePeaks, "shift", source, "intervals", counts.In)
		p.Summary.Add(StagePeaks, "shift", out.Shifted, "shifted", counts.Out)
		return nil
	})
	if err != nil {
		return out, err
	}
	if cfg.Mode == SingleEnd {
		if err = p.remove(ctx, StagePeaks, source); err != nil {
			return out, err
		}
	}

	call := tool.CallPeak{
		Treatment:  out.Shifted,
		Format:     format,
		GenomeSize: cfg.GenomeSize,
		Name:       cfg.Prefix,
		OutDir:     l.MACS2Dir(),
		Broad:      true,
		KeepDup:    "all",
	}
	if cfg.Mode == SingleEnd {
		call.NoModel = true
		call.Shift = singleEndShift
		call.ExtSize = singleEndExtSize
	}
	out.Raw = call.BroadPeaks()
	if err = p.run(ctx, StagePeaks, "macs2 callpeak", call, p.logTo("macs2")); err != nil {
		return out, err
	}

	err = p.builtin(ctx, StagePeaks, "blacklist filter "+cfg.Blacklist, func() error {
		kept, dropped, err := FilterPeaks(ctx, cfg.Blacklist, out.Raw, out.Filtered)
		if err != nil {
			return err
		}
		log.Printf("blacklist filter: %d peaks kept, %d dropped", kept, dropped)
		p.Summary.Add(StagePeaks, "macs2", out.Raw, "peaks", kept+dropped)
		p.Summary.Add(StagePeaks, "blacklist", out.Filtered, "peaks", kept)
		return nil
	})
	return out, err
}

// FilterPeaks copies the peaks in src to dst, dropping every peak that
// overlaps an interval of the blacklist BED.
func FilterPeaks(ctx context.Context, blacklist, src, dst string) (kept, dropped int64, err error) {
	u, err := interval.NewBEDUnionFromPath(ctx, blacklist)
	if err != nil {
		return 0, 0, err
	}
	in, err := file.Open(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, dst)
	if err != nil {
		return 0, 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	return interval.Subtract(u, in.Reader(ctx), out.Writer(ctx))
}
