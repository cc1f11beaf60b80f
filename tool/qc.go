package tool

import (
	"errors"
	"os/exec"
)

// ErrMissingRequired is returned by BuildCommand when a required argument
// has not been set.
var ErrMissingRequired = errors.New("tool: missing required argument")

// FastQC defines parameters for the fastqc read quality report generator.
type FastQC struct {
	// Usage: fastqc [-o output dir] seqfile1 .. seqfileN
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}fastqc{{end}}"` // fastqc

	Threads int    `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"` // -t: files processed simultaneously
	OutDir  string `buildarg:"{{if .}}--outdir{{split}}{{.}}{{end}}"`  // -o: existing directory for the reports
	Quiet   bool   `buildarg:"{{if .}}--quiet{{end}}"`                 // -q: suppress progress messages

	Read1 string `buildarg:"{{.}}"`
	Read2 string `buildarg:"{{if .}}{{.}}{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in f.
func (f FastQC) BuildCommand() (*exec.Cmd, error) {
	if f.Read1 == "" {
		return nil, ErrMissingRequired
	}
	return command(f)
}

// Cutadapt defines parameters for the cutadapt adapter trimmer. Adapter
// flags follow cutadapt: lower case applies to read 1, upper case to read 2.
type Cutadapt struct {
	// Usage: cutadapt -a ADAPT -o out.fastq in.fastq
	//        cutadapt -a ADAPT -A ADAPT -o out.1.fastq -p out.2.fastq in.1.fastq in.2.fastq
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}cutadapt{{end}}"` // cutadapt

	Cores     int `buildarg:"{{if .}}--cores{{split}}{{.}}{{end}}"`      // -j: worker processes
	MinLength int `buildarg:"{{if .}}--minimum-length{{split}}{{.}}{{end}}"` // -m: discard shorter reads

	Adapter3   string `buildarg:"{{if .}}-a{{split}}{{.}}{{end}}"` // 3' adapter, read 1
	Adapter5   string `buildarg:"{{if .}}-g{{split}}{{.}}{{end}}"` // 5' adapter, read 1
	Adapter3R2 string `buildarg:"{{if .}}-A{{split}}{{.}}{{end}}"` // 3' adapter, read 2
	Adapter5R2 string `buildarg:"{{if .}}-G{{split}}{{.}}{{end}}"` // 5' adapter, read 2

	Output       string `buildarg:"{{if .}}--output{{split}}{{.}}{{end}}"`        // -o
	PairedOutput string `buildarg:"{{if .}}--paired-output{{split}}{{.}}{{end}}"` // -p

	Read1 string `buildarg:"{{.}}"`
	Read2 string `buildarg:"{{if .}}{{.}}{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in c.
func (c Cutadapt) BuildCommand() (*exec.Cmd, error) {
	if c.Read1 == "" || c.Output == "" {
		return nil, ErrMissingRequired
	}
	if (c.Read2 == "") != (c.PairedOutput == "") {
		return nil, ErrMissingRequired
	}
	return command(c)
}

// Bowtie2 defines parameters for the bowtie2 short read aligner.
type Bowtie2 struct {
	// Usage: bowtie2 [options]* -x <bt2-idx> {-1 <m1> -2 <m2> | -U <r>} [-S <sam>]
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}bowtie2{{end}}"` // bowtie2

	Threads int  `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"` // -p
	Local   bool `buildarg:"{{if .}}--local{{end}}"`                 // soft-clipping local alignment

	// MaxFragment is the maximum fragment length for valid paired-end
	// alignments.
	MaxFragment  int  `buildarg:"{{if .}}--maxins{{split}}{{.}}{{end}}"` // -X
	NoMixed      bool `buildarg:"{{if .}}--no-mixed{{end}}"`             // no unpaired alignments for pairs
	NoDiscordant bool `buildarg:"{{if .}}--no-discordant{{end}}"`        // no discordant alignments

	Index    string `buildarg:"{{if .}}-x{{split}}{{.}}{{end}}"` // index basename
	Unpaired string `buildarg:"{{if .}}-U{{split}}{{.}}{{end}}"` // single-end reads
	Mate1    string `buildarg:"{{if .}}-1{{split}}{{.}}{{end}}"`
	Mate2    string `buildarg:"{{if .}}-2{{split}}{{.}}{{end}}"`

	SAM string `buildarg:"{{if .}}-S{{split}}{{.}}{{end}}"` // output; stdout if empty
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b Bowtie2) BuildCommand() (*exec.Cmd, error) {
	if b.Index == "" {
		return nil, ErrMissingRequired
	}
	paired := b.Mate1 != "" && b.Mate2 != ""
	if paired == (b.Unpaired != "") || (b.Mate1 == "") != (b.Mate2 == "") {
		return nil, ErrMissingRequired
	}
	return command(b)
}
