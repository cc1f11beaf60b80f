package atac

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customOpts() Opts {
	opts := DefaultOpts
	opts.Index = "/idx/genome"
	opts.Blacklist = "/idx/blacklist.bed"
	opts.GenomeSize = "hs"
	opts.Picard = "/opt/picard.jar"
	opts.Threads = 4
	return opts
}

func TestNewConfigCustom(t *testing.T) {
	cfg, err := NewConfig(customOpts(), []string{"/data/sampleA.R1.fastq.gz", "/data/sampleA.R2.fastq.gz"})
	require.NoError(t, err)
	expect.EQ(t, cfg.Mode, PairedEnd)
	expect.EQ(t, cfg.Prefix, "sampleA")
	expect.EQ(t, cfg.Input, Reads{R1: "/data/sampleA.R1.fastq.gz", R2: "/data/sampleA.R2.fastq.gz"})
	expect.EQ(t, cfg.Index, "/idx/genome")
	expect.EQ(t, cfg.Blacklist, "/idx/blacklist.bed")
	expect.EQ(t, cfg.BlacklistURL, "")
	expect.EQ(t, cfg.GenomeSize, "hs")
	expect.EQ(t, cfg.Threads, 4)

	opts := customOpts()
	opts.SingleEnd = true
	opts.Prefix = "run7"
	opts.GenomeSize = "2.7e9"
	cfg, err = NewConfig(opts, []string{"reads.fq"})
	require.NoError(t, err)
	expect.EQ(t, cfg.Mode, SingleEnd)
	expect.EQ(t, cfg.Prefix, "run7")
	expect.False(t, cfg.Input.Paired())
}

func TestNewConfigPreset(t *testing.T) {
	opts := DefaultOpts
	opts.Genome = "hg38"
	opts.GenomeRoot = "/ref"
	opts.Dir = "/work"
	opts.SingleEnd = true
	cfg, err := NewConfig(opts, []string{"s.fastq"})
	require.NoError(t, err)
	expect.EQ(t, cfg.Genome, "hg38")
	expect.EQ(t, cfg.Index, "/ref/Homo_sapiens/UCSC/hg38/Sequence/Bowtie2Index/genome")
	expect.EQ(t, cfg.GenomeSize, "hs")
	expect.EQ(t, cfg.Blacklist, "/work/hg38-blacklist.v2.bed")
	expect.EQ(t, cfg.BlacklistURL, DefaultBlacklistURL+"/hg38-blacklist.v2.bed.gz")
}

func TestNewConfigErrors(t *testing.T) {
	pe := []string{"a_R1.fq", "a_R2.fq"}
	for _, test := range []struct {
		name string
		opts func(*Opts)
		args []string
		kind errors.Kind
	}{
		{"no args", func(*Opts) {}, nil, errors.Invalid},
		{"one file paired", func(*Opts) {}, []string{"a.fq"}, errors.Invalid},
		{"two files single", func(o *Opts) { o.SingleEnd = true }, pe, errors.Invalid},
		{"same mates", func(*Opts) {}, []string{"a.fq", "a.fq"}, errors.Invalid},
		{"unknown build", func(o *Opts) { *o = DefaultOpts; o.Genome = "hg17"; o.GenomeRoot = "/ref"; o.Picard = "p.jar" }, pe, errors.NotSupported},
		{"preset and custom", func(o *Opts) { o.Genome = "hg38"; o.GenomeRoot = "/ref" }, pe, errors.Invalid},
		{"no genome root", func(o *Opts) { *o = DefaultOpts; o.Genome = "mm10"; o.Picard = "p.jar" }, pe, errors.Precondition},
		{"no genome", func(o *Opts) { o.Index, o.Blacklist, o.GenomeSize = "", "", "" }, pe, errors.Invalid},
		{"partial custom", func(o *Opts) { o.Blacklist = "" }, pe, errors.Invalid},
		{"bad genome size", func(o *Opts) { o.GenomeSize = "human" }, pe, errors.Invalid},
		{"zero threads", func(o *Opts) { o.Threads = 0 }, pe, errors.Invalid},
		{"negative length", func(o *Opts) { o.MinLength = -1 }, pe, errors.Invalid},
		{"no mito", func(o *Opts) { o.Mito = "" }, pe, errors.Invalid},
		{"unknown markdup", func(o *Opts) { o.MarkDup = "samblaster" }, pe, errors.Invalid},
		{"no picard", func(o *Opts) { o.Picard = "" }, pe, errors.Precondition},
		{"bad prefix", func(o *Opts) { o.Prefix = "a/b" }, pe, errors.Invalid},
		{"hidden file", func(o *Opts) { o.SingleEnd = true }, []string{"/data/.fq"}, errors.Invalid},
	} {
		opts := customOpts()
		test.opts(&opts)
		_, err := NewConfig(opts, test.args)
		if !assert.Error(t, err, test.name) {
			continue
		}
		assert.True(t, errors.Is(test.kind, err), "%s: %v", test.name, err)
	}
}

func TestNewConfigDoppelmark(t *testing.T) {
	opts := customOpts()
	opts.Picard = ""
	opts.MarkDup = MarkDupDoppelmark
	cfg, err := NewConfig(opts, []string{"a_R1.fq", "a_R2.fq"})
	require.NoError(t, err)
	reqs := cfg.Requirements()
	expect.EQ(t, reqs[len(reqs)-1].Program, "doppelmark")

	// Single-end runs never mark duplicates with picard.
	opts = customOpts()
	opts.Picard = ""
	opts.SingleEnd = true
	cfg, err = NewConfig(opts, []string{"a.fq"})
	require.NoError(t, err)
	expect.EQ(t, len(cfg.Requirements()), 7)
}

func TestRequirements(t *testing.T) {
	cfg, err := NewConfig(customOpts(), []string{"a_R1.fq", "a_R2.fq"})
	require.NoError(t, err)
	var names []string
	for _, r := range cfg.Requirements() {
		names = append(names, r.Program+r.File)
	}
	expect.EQ(t, names, []string{
		"fastqc", "cutadapt", "bowtie2", "samtools", "bedtools", "bamCoverage", "macs2",
		"java", "/opt/picard.jar",
	})
}

func TestStem(t *testing.T) {
	for _, test := range []struct{ path, want string }{
		{"sampleA.fastq.gz", "sampleA"},
		{"/data/run1/sampleB_R1.fq", "sampleB_R1"},
		{"s3://bucket/x/lib7.R1.fastq.gz", "lib7"},
		{"noext", "noext"},
		{".hidden", ""},
	} {
		expect.EQ(t, stem(test.path), test.want, test.path)
	}
}

func TestGenomes(t *testing.T) {
	expect.EQ(t, Builds(), []string{"ce11", "dm6", "hg19", "hg38", "mm10"})
	for _, test := range []struct{ build, size, species string }{
		{"hg19", "hs", "Homo_sapiens"},
		{"hg38", "hs", "Homo_sapiens"},
		{"mm10", "mm", "Mus_musculus"},
		{"dm6", "dm", "Drosophila_melanogaster"},
		{"ce11", "ce", "Caenorhabditis_elegans"},
	} {
		g, err := LookupGenome(test.build)
		require.NoError(t, err)
		expect.EQ(t, g.Size, test.size)
		expect.EQ(t, g.Species, test.species)
		expect.EQ(t, g.BlacklistName(), test.build+"-blacklist.v2.bed.gz")
	}
	_, err := LookupGenome("hg18")
	assert.True(t, errors.Is(errors.NotSupported, err))
}
