package atac

import (
	"context"

	"github.com/grailbio/atacseq/encoding/fastq"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/log"
)

// Nextera (Tn5) adapter sequences.
const (
	NexteraAdapter   = "CTGTCTCTTATACACATCT"
	NexteraAdapterRC = "AGATGTGTATAAGAGACAG"
)

// maxFragment is the longest paired-end fragment bowtie2 considers
// concordant.
const maxFragment = 2000

// align runs quality reports, adapter trimming and alignment.
func (p *Pipeline) align(ctx context.Context) (Alignment, error) {
	var (
		cfg     = p.Config
		l       = p.Layout
		in      = cfg.Input
		trimmed = l.Trimmed()
		aln     = Alignment{Trimmed: trimmed, SAM: l.SAM()}
	)
	logTo := p.logTo

	err := p.run(ctx, StageAlign, "fastqc", tool.FastQC{
		Threads: cfg.Threads,
		OutDir:  l.FastQCDir(),
		Read1:   in.R1,
		Read2:   in.R2,
	}, logTo("fastqc"))
	if err != nil {
		return aln, err
	}

	cut := tool.Cutadapt{
		Cores:     cfg.Threads,
		MinLength: cfg.MinLength,
		Adapter3:  NexteraAdapter,
		Output:    trimmed.R1,
		Read1:     in.R1,
	}
	if cfg.Mode == PairedEnd {
		cut.Adapter3R2 = NexteraAdapter
		cut.PairedOutput = trimmed.R2
		cut.Read2 = in.R2
	} else {
		cut.Adapter5 = NexteraAdapterRC
	}
	if err = p.run(ctx, StageAlign, "cutadapt", cut, logTo("cutadapt")); err != nil {
		return aln, err
	}

	err = p.builtin(ctx, StageAlign, "count trimmed reads", func() error {
		if cfg.Mode == PairedEnd {
			s1, s2, err := fastq.CountPairPath(ctx, trimmed.R1, trimmed.R2)
			if err != nil {
				return err
			}
			logTrimmed(trimmed.R1, s1)
			logTrimmed(trimmed.R2, s2)
			p.Summary.AddReads(StageAlign, "cutadapt", trimmed.R1, s1)
			p.Summary.AddReads(StageAlign, "cutadapt", trimmed.R2, s2)
			return nil
		}
		s, err := fastq.CountPath(ctx, trimmed.R1)
		if err != nil {
			return err
		}
		logTrimmed(trimmed.R1, s)
		p.Summary.AddReads(StageAlign, "cutadapt", trimmed.R1, s)
		return nil
	})
	if err != nil {
		return aln, err
	}

	bt := tool.Bowtie2{
		Threads:     cfg.Threads,
		Local:       true,
		MaxFragment: maxFragment,
		Index:       cfg.Index,
		SAM:         aln.SAM,
	}
	if cfg.Mode == PairedEnd {
		bt.NoMixed = true
		bt.NoDiscordant = true
		bt.Mate1, bt.Mate2 = trimmed.R1, trimmed.R2
	} else {
		bt.Unpaired = trimmed.R1
	}
	if err = p.run(ctx, StageAlign, "bowtie2", bt, logTo("bowtie2")); err != nil {
		return aln, err
	}
	return aln, nil
}

func logTrimmed(path string, s fastq.Stats) {
	log.Printf("%s: %d reads after trimming, mean length %.1f", path, s.Reads, s.MeanLength())
}
