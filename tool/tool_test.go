package tool

import (
	"bytes"
	"context"
	"testing"

	"github.com/biogo/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func args(t *testing.T, b external.CommandBuilder) []string {
	inv, err := Build("test", b)
	require.NoError(t, err)
	return inv.Args
}

func TestCommandLines(t *testing.T) {
	tests := []struct {
		name string
		b    external.CommandBuilder
		want []string
	}{
		{"fastqc paired",
			FastQC{Threads: 4, OutDir: "fastqc", Read1: "a_1.fq.gz", Read2: "a_2.fq.gz"},
			[]string{"fastqc", "--threads", "4", "--outdir", "fastqc", "a_1.fq.gz", "a_2.fq.gz"}},
		{"fastqc single",
			FastQC{OutDir: "fastqc", Read1: "a.fq.gz"},
			[]string{"fastqc", "--outdir", "fastqc", "a.fq.gz"}},
		{"cutadapt single",
			Cutadapt{Cores: 2, MinLength: 20, Adapter3: "CTGTCTCTTATACACATCT", Adapter5: "AGATGTGTATAAGAGACAG",
				Output: "a_trimmed.fastq.gz", Read1: "a.fq.gz"},
			[]string{"cutadapt", "--cores", "2", "--minimum-length", "20",
				"-a", "CTGTCTCTTATACACATCT", "-g", "AGATGTGTATAAGAGACAG",
				"--output", "a_trimmed.fastq.gz", "a.fq.gz"}},
		{"cutadapt paired",
			Cutadapt{MinLength: 20, Adapter3: "X", Adapter3R2: "Y", Output: "o1", PairedOutput: "o2", Read1: "r1", Read2: "r2"},
			[]string{"cutadapt", "--minimum-length", "20", "-a", "X", "-A", "Y",
				"--output", "o1", "--paired-output", "o2", "r1", "r2"}},
		{"bowtie2 paired",
			Bowtie2{Threads: 8, Local: true, MaxFragment: 2000, NoMixed: true, NoDiscordant: true,
				Index: "idx/genome", Mate1: "t1", Mate2: "t2", SAM: "a.sam"},
			[]string{"bowtie2", "--threads", "8", "--local", "--maxins", "2000", "--no-mixed", "--no-discordant",
				"-x", "idx/genome", "-1", "t1", "-2", "t2", "-S", "a.sam"}},
		{"bowtie2 single",
			Bowtie2{Local: true, MaxFragment: 2000, Index: "idx/genome", Unpaired: "t", SAM: "a.sam"},
			[]string{"bowtie2", "--local", "--maxins", "2000", "-x", "idx/genome", "-U", "t", "-S", "a.sam"}},
		{"samtools view",
			SamtoolsView{Threads: 3, BAM: true, Output: "o.bam", Require: 2, Exclude: 1804, Input: "i.bam"},
			[]string{"samtools", "view", "-@", "3", "-b", "-o", "o.bam", "-f", "2", "-F", "1804", "i.bam"}},
		{"samtools view regions",
			SamtoolsView{BAM: true, Output: "o.bam", Regions: "keep.bed", Input: "i.bam"},
			[]string{"samtools", "view", "-b", "-o", "o.bam", "-L", "keep.bed", "i.bam"}},
		{"samtools sort by name",
			SamtoolsSort{Cmd: "/opt/bin/samtools", ByName: true, Output: "o.bam", Input: "i.bam"},
			[]string{"/opt/bin/samtools", "sort", "-n", "-o", "o.bam", "i.bam"}},
		{"samtools index",
			SamtoolsIndex{Input: "i.bam"},
			[]string{"samtools", "index", "i.bam"}},
		{"samtools rmdup",
			SamtoolsRmdup{SingleEnd: true, Input: "i.bam", Output: "o.bam"},
			[]string{"samtools", "rmdup", "-s", "i.bam", "o.bam"}},
		{"picard",
			MarkDuplicates{Jar: "/opt/picard.jar", Input: "i.bam", Output: "o.bam", Metrics: "m.txt"},
			[]string{"java", "-jar", "/opt/picard.jar", "MarkDuplicates", "I=i.bam", "O=o.bam", "M=m.txt",
				"REMOVE_DUPLICATES=false"}},
		{"doppelmark",
			Doppelmark{Input: "i.bam", Index: "i.bam.bai", Output: "o.bam", Metrics: "m.txt", Parallelism: 2},
			[]string{"doppelmark", "--bam", "i.bam", "--index", "i.bam.bai", "--output", "o.bam",
				"--metrics", "m.txt", "--parallelism", "2"}},
		{"bamtobed",
			BamToBed{BEDPE: true, Input: "n.bam"},
			[]string{"bedtools", "bamtobed", "-bedpe", "-i", "n.bam"}},
		{"bamCoverage",
			BamCoverage{Input: "f.bam", Output: "f.bw", Normalize: "CPM", BinSize: 10, Threads: 4},
			[]string{"bamCoverage", "--bam", "f.bam", "--outFileName", "f.bw", "--normalizeUsing", "CPM",
				"--binSize", "10", "--numberOfProcessors", "4"}},
		{"macs2 single",
			CallPeak{Treatment: "s.bed", Format: "BED", GenomeSize: "hs", Name: "s", OutDir: "macs2",
				Broad: true, KeepDup: "all", NoModel: true, Shift: -37, ExtSize: 73},
			[]string{"macs2", "callpeak", "--treatment", "s.bed", "--format", "BED", "--gsize", "hs",
				"--name", "s", "--outdir", "macs2", "--broad", "--keep-dup", "all",
				"--nomodel", "--shift", "-37", "--extsize", "73"}},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, args(t, test.b), test.name)
	}
}

func TestMissingRequired(t *testing.T) {
	for _, b := range []external.CommandBuilder{
		FastQC{},
		Cutadapt{Read1: "r1", Output: "o1", Read2: "r2"},
		Bowtie2{Index: "idx", Unpaired: "u", Mate1: "m1", Mate2: "m2"},
		Bowtie2{Index: "idx", Mate1: "m1"},
		Bowtie2{Unpaired: "u"},
		SamtoolsSort{Input: "i.bam"},
		SamtoolsRmdup{Input: "i.bam"},
		MarkDuplicates{Input: "i.bam", Output: "o.bam", Metrics: "m"},
		CallPeak{Treatment: "t.bed", Name: "n"},
	} {
		_, err := Build("test", b)
		assert.Error(t, err, "%#v", b)
	}
}

func TestBroadPeaks(t *testing.T) {
	c := CallPeak{Name: "sampleA", OutDir: "macs2"}
	assert.Equal(t, "macs2/sampleA_peaks.broadPeak", c.BroadPeaks())
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{
		Step: "test",
		Args: []string{"bedtools", "bamtobed", "-i", "my sample's.bam"},
	}.WithStdout("out.bed").WithLog("logs/x.log")
	assert.Equal(t, `bedtools bamtobed -i 'my sample'\''s.bam' > out.bed 2>> logs/x.log`, inv.String())
	assert.Equal(t, "''", quote(""))
}

func TestDryRun(t *testing.T) {
	var buf bytes.Buffer
	d := DryRun{W: &buf}
	inv, err := Build("index", SamtoolsIndex{Input: "a.bam"})
	require.NoError(t, err)
	require.NoError(t, d.Execute(context.Background(), inv))
	require.NoError(t, d.Execute(context.Background(), inv.WithLog("l")))
	assert.Equal(t, "samtools index a.bam\nsamtools index a.bam 2>> l\n", buf.String())
}
