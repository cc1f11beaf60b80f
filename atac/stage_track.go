package atac

import (
	"context"

	"github.com/grailbio/atacseq/tool"
)

// Coverage track settings.
const (
	trackNormalization = "CPM"
	trackBinSize       = 10
)

// track writes the CPM-normalized bigWig coverage track of the filtered
// alignments.
func (p *Pipeline) track(ctx context.Context, in Filtered) (Track, error) {
	out := Track{BigWig: p.Layout.BigWig()}
	err := p.run(ctx, StageTrack, "bamCoverage", tool.BamCoverage{
		Input:     in.BAM,
		Output:    out.BigWig,
		Normalize: trackNormalization,
		BinSize:   trackBinSize,
		Threads:   p.Config.Threads,
	}, p.logTo("bamCoverage"))
	return out, err
}
