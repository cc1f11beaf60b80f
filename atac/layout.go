package atac

import "path/filepath"

// Layout derives the name of every file a run reads or writes from the
// working directory, the output prefix and the mode.
type Layout struct {
	Dir    string
	Prefix string
	Mode   Mode
}

// NewLayout returns the layout of cfg.
func NewLayout(cfg Config) Layout {
	return Layout{Dir: cfg.Dir, Prefix: cfg.Prefix, Mode: cfg.Mode}
}

func (l Layout) path(elem ...string) string {
	return filepath.Join(append([]string{l.Dir}, elem...)...)
}

func (l Layout) file(suffix string) string {
	return l.path(l.Prefix + suffix)
}

// LogDir holds per-step logs.
func (l Layout) LogDir() string { return l.path("logs") }

// FastQCDir holds the fastqc reports.
func (l Layout) FastQCDir() string { return l.path("fastqc") }

// MACS2Dir holds the peak caller outputs.
func (l Layout) MACS2Dir() string { return l.path("macs2") }

// Dirs lists the directories a run writes to.
func (l Layout) Dirs() []string {
	return []string{l.Dir, l.LogDir(), l.FastQCDir(), l.MACS2Dir()}
}

// Log is the log of the named tool, e.g. logs/<p>_bowtie2.log.
func (l Layout) Log(tool string) string {
	return l.path("logs", l.Prefix+"_"+tool+".log")
}

// PipelineLog receives the orchestrator's own log.
func (l Layout) PipelineLog() string { return l.path("logs", l.Prefix+".pipeline.log") }

// FlagstatLog receives a flagstat report after every filtering step.
func (l Layout) FlagstatLog() string { return l.path("logs", l.Prefix+".flagstat.txt") }

// MarkDupMetrics receives the duplicate marker's metrics.
func (l Layout) MarkDupMetrics() string { return l.path("logs", l.Prefix+"_mkdup.metrics") }

// Trimmed returns the adapter-trimmed reads.
func (l Layout) Trimmed() Reads {
	if l.Mode == PairedEnd {
		return Reads{R1: l.file("_R1_trimmed.fastq.gz"), R2: l.file("_R2_trimmed.fastq.gz")}
	}
	return Reads{R1: l.file("_trimmed.fastq.gz")}
}

// SAM is the aligner output.
func (l Layout) SAM() string { return l.file(".sam") }

// BAM is the unsorted BAM conversion of SAM.
func (l Layout) BAM() string { return l.file(".bam") }

// Sorted is the coordinate-sorted BAM.
func (l Layout) Sorted() string { return l.file("_srt.bam") }

// Dedup is the BAM after duplicate handling: duplicates removed for
// single-end data, marked for paired-end data.
func (l Layout) Dedup() string {
	if l.Mode == PairedEnd {
		return l.file("_mkdup.bam")
	}
	return l.file("_rm.bam")
}

// MitoBED lists every reference except the mitochondrial one.
func (l Layout) MitoBED() string { return l.file("_nochrM.bed") }

// NoMito is the BAM without mitochondrial alignments.
func (l Layout) NoMito() string { return l.file("_chrM.bam") }

// Filtered is the final filtered BAM.
func (l Layout) Filtered() string { return l.file("_filtered.bam") }

// NameSorted is the name-sorted filtered BAM used to pair mates.
func (l Layout) NameSorted() string { return l.file("_nsrt.bam") }

// BEDPE holds one line per properly paired fragment.
func (l Layout) BEDPE() string { return l.file(".bedpe") }

// BED holds one line per filtered single-end read.
func (l Layout) BED() string { return l.file(".bed") }

// Shifted holds the Tn5-corrected intervals handed to the peak caller.
func (l Layout) Shifted() string { return l.file("_shift.bed") }

// BigWig is the CPM-normalized coverage track.
func (l Layout) BigWig() string { return l.file(".bw") }

// Peaks is the raw broad peak set.
func (l Layout) Peaks() string { return l.path("macs2", l.Prefix+"_peaks.broadPeak") }

// FilteredPeaks is the peak set with blacklisted peaks removed.
func (l Layout) FilteredPeaks() string {
	return l.path("macs2", l.Prefix+"_filtered_peaks.broadPeak")
}

// Summary is the run summary table.
func (l Layout) Summary() string { return l.file("_summary.tsv") }

// Index returns the samtools index path of a BAM file.
func Index(bam string) string { return bam + ".bai" }
