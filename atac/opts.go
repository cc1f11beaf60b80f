package atac

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/errors"
)

// Mode is the sequencing layout of a run.
type Mode int

const (
	// SingleEnd runs take one read file.
	SingleEnd Mode = iota
	// PairedEnd runs take an R1 and an R2 file.
	PairedEnd
)

func (m Mode) String() string {
	if m == PairedEnd {
		return "paired-end"
	}
	return "single-end"
}

// NumInputs returns the number of read files a run of mode m takes.
func (m Mode) NumInputs() int {
	if m == PairedEnd {
		return 2
	}
	return 1
}

// Duplicate markers for paired-end runs.
const (
	MarkDupPicard     = "picard"
	MarkDupDoppelmark = "doppelmark"
)

// DefaultBlacklistURL is where preset blacklists are downloaded from.
const DefaultBlacklistURL = "https://github.com/Boyle-Lab/Blacklist/raw/master/lists"

// Opts holds the user-facing settings of a run, one field per command-line
// flag.
type Opts struct {
	// Genome is a preset build name, e.g. "hg38". Mutually exclusive with
	// Index, Blacklist and GenomeSize.
	Genome string
	// Index is a custom Bowtie2 index basename.
	Index string
	// Blacklist is a custom BED file of regions to drop peaks from. It may be
	// gzipped and may live on s3.
	Blacklist string
	// GenomeSize is the MACS2 effective genome size: hs, mm, ce, dm or a
	// number.
	GenomeSize string
	// Prefix names every output file. It defaults to the stem of the first
	// read file.
	Prefix string
	// Threads is handed to every external tool that takes a thread count.
	Threads int
	// SingleEnd selects single-end mode.
	SingleEnd bool
	// Dir is the working directory that receives all outputs.
	Dir string
	// GenomeRoot is the root of the preset index tree.
	GenomeRoot string
	// BlacklistURL is the base URL of the preset blacklists.
	BlacklistURL string
	// Picard is the path of picard.jar.
	Picard string
	// MarkDup selects the paired-end duplicate marker.
	MarkDup string
	// Mito is the name of the mitochondrial reference.
	Mito string
	// MinLength is the shortest trimmed read kept by cutadapt.
	MinLength int
	// SEProperPair requires the proper-pair flag in single-end filtering.
	SEProperPair bool
	// KeepIntermediates disables the removal of superseded files.
	KeepIntermediates bool
	// DryRun prints the commands instead of running them.
	DryRun bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Threads:      runtime.NumCPU(), // -t
	Dir:          ".",              // -dir
	BlacklistURL: DefaultBlacklistURL,
	MarkDup:      MarkDupPicard, // -markdup
	Mito:         "chrM",        // -mito
	MinLength:    20,            // -min-length
}

// Reads names the read files of one sample. R2 is empty for single-end
// data.
type Reads struct {
	R1, R2 string
}

// Paired reports whether r has a mate file.
func (r Reads) Paired() bool { return r.R2 != "" }

// Config is the resolved, validated configuration of a run. It is built
// once by NewConfig and not modified afterwards.
type Config struct {
	Mode    Mode
	Threads int
	Input   Reads

	// Genome is the preset build, or empty for a custom genome.
	Genome     string
	Index      string
	GenomeSize string
	// Blacklist is the local or s3 path of the blacklist BED. For presets it
	// is the decompressed download in Dir.
	Blacklist string
	// BlacklistURL is the download location of a preset blacklist; it is
	// empty for custom genomes.
	BlacklistURL string

	Prefix string
	Dir    string

	Picard  string
	MarkDup string
	Mito    string

	MinLength         int
	SEProperPair      bool
	KeepIntermediates bool
	DryRun            bool
}

// NewConfig validates opts against the read files in args and resolves the
// genome settings.
func NewConfig(opts Opts, args []string) (Config, error) {
	cfg := Config{
		Mode:              SingleEnd,
		Threads:           opts.Threads,
		Dir:               opts.Dir,
		Picard:            opts.Picard,
		MarkDup:           opts.MarkDup,
		Mito:              opts.Mito,
		MinLength:         opts.MinLength,
		SEProperPair:      opts.SEProperPair,
		KeepIntermediates: opts.KeepIntermediates,
		DryRun:            opts.DryRun,
	}
	if len(args) == 0 {
		return Config{}, errors.E(errors.Invalid, "no read files given")
	}
	if !opts.SingleEnd {
		cfg.Mode = PairedEnd
	}
	if n := cfg.Mode.NumInputs(); len(args) != n {
		return Config{}, errors.E(errors.Invalid,
			fmt.Sprintf("%s mode takes %d read file(s), got %d", cfg.Mode, n, len(args)))
	}
	cfg.Input.R1 = args[0]
	if cfg.Mode == PairedEnd {
		cfg.Input.R2 = args[1]
		if cfg.Input.R1 == cfg.Input.R2 {
			return Config{}, errors.E(errors.Invalid, "R1 and R2 are the same file "+cfg.Input.R1)
		}
	}
	if cfg.Threads < 1 {
		return Config{}, errors.E(errors.Invalid, fmt.Sprintf("threads must be at least 1, got %d", cfg.Threads))
	}
	if cfg.MinLength < 0 {
		return Config{}, errors.E(errors.Invalid, fmt.Sprintf("negative minimum read length %d", cfg.MinLength))
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Mito == "" {
		return Config{}, errors.E(errors.Invalid, "empty mitochondrial reference name")
	}
	if err := resolveGenome(opts, &cfg); err != nil {
		return Config{}, err
	}

	cfg.Prefix = opts.Prefix
	if cfg.Prefix == "" {
		cfg.Prefix = stem(cfg.Input.R1)
	}
	if cfg.Prefix == "" || strings.ContainsRune(cfg.Prefix, '/') {
		return Config{}, errors.E(errors.Invalid, fmt.Sprintf("invalid output prefix %q", cfg.Prefix))
	}

	if cfg.Mode == PairedEnd {
		switch cfg.MarkDup {
		case MarkDupPicard:
			if cfg.Picard == "" {
				return Config{}, errors.E(errors.Precondition,
					"paired-end duplicate marking needs picard.jar; set -picard or $PICARD_JAR")
			}
		case MarkDupDoppelmark:
		default:
			return Config{}, errors.E(errors.Invalid, "unknown duplicate marker "+cfg.MarkDup)
		}
	}
	return cfg, nil
}

// resolveGenome fills in the index, blacklist and genome size, either from a
// preset or from the custom settings.
func resolveGenome(opts Opts, cfg *Config) error {
	var custom []string
	if opts.Index != "" {
		custom = append(custom, "-i")
	}
	if opts.Blacklist != "" {
		custom = append(custom, "-b")
	}
	if opts.GenomeSize != "" {
		custom = append(custom, "-c")
	}
	if opts.Genome != "" {
		if len(custom) > 0 {
			return errors.E(errors.Invalid,
				"genome build -g "+opts.Genome+" cannot be combined with "+strings.Join(custom, ", "))
		}
		g, err := LookupGenome(opts.Genome)
		if err != nil {
			return err
		}
		if opts.GenomeRoot == "" {
			return errors.E(errors.Precondition, "genome build -g "+opts.Genome+" needs -genome-root")
		}
		cfg.Genome = g.Build
		cfg.Index = g.IndexPath(opts.GenomeRoot)
		cfg.GenomeSize = g.Size
		cfg.Blacklist = filepath.Join(cfg.Dir, strings.TrimSuffix(g.BlacklistName(), ".gz"))
		cfg.BlacklistURL = strings.TrimSuffix(opts.BlacklistURL, "/") + "/" + g.BlacklistName()
		return nil
	}
	if len(custom) == 0 {
		return errors.E(errors.Invalid, "either a genome build (-g) or a custom genome (-i, -b, -c) is required")
	}
	if len(custom) != 3 {
		var missing []string
		for _, f := range []struct{ flag, val string }{{"-i", opts.Index}, {"-b", opts.Blacklist}, {"-c", opts.GenomeSize}} {
			if f.val == "" {
				missing = append(missing, f.flag)
			}
		}
		return errors.E(errors.Invalid, "custom genome is missing "+strings.Join(missing, ", "))
	}
	if !validGenomeSize(opts.GenomeSize) {
		return errors.E(errors.Invalid, "invalid genome size "+opts.GenomeSize)
	}
	cfg.Index = opts.Index
	cfg.Blacklist = opts.Blacklist
	cfg.GenomeSize = opts.GenomeSize
	return nil
}

// validGenomeSize accepts the MACS2 shortcuts or a positive number such as
// 2.7e9.
func validGenomeSize(s string) bool {
	switch s {
	case "hs", "mm", "ce", "dm":
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

// stem returns the file name of path up to its first '.', so that
// "/data/sampleA.R1.fastq.gz" yields "sampleA".
func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return ""
	}
	return base
}

// Requirements lists the programs and files that must be present before cfg
// can run.
func (cfg Config) Requirements() []tool.Requirement {
	reqs := []tool.Requirement{
		{Program: "fastqc", Why: "read quality reports"},
		{Program: "cutadapt", Why: "adapter trimming"},
		{Program: "bowtie2", Why: "alignment"},
		{Program: "samtools", Why: "BAM conversion, sorting and filtering"},
		{Program: "bedtools", Why: "BAM to BED conversion"},
		{Program: "bamCoverage", Why: "signal track, from deepTools"},
		{Program: "macs2", Why: "peak calling"},
	}
	if cfg.Mode == PairedEnd {
		switch cfg.MarkDup {
		case MarkDupPicard:
			reqs = append(reqs,
				tool.Requirement{Program: "java", Why: "runs picard MarkDuplicates"},
				tool.Requirement{File: cfg.Picard, Why: "picard.jar"})
		case MarkDupDoppelmark:
			reqs = append(reqs, tool.Requirement{Program: "doppelmark", Why: "duplicate marking"})
		}
	}
	return reqs
}
