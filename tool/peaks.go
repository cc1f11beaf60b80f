package tool

import (
	"os/exec"
	"path/filepath"
)

// BamToBed defines parameters for bedtools bamtobed. Records are written to
// standard output.
type BamToBed struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}bedtools{{end}}{{split}}bamtobed"` // bedtools bamtobed

	// BEDPE writes one record per read pair. The input must be grouped by
	// read name.
	BEDPE bool   `buildarg:"{{if .}}-bedpe{{end}}"`
	Input string `buildarg:"{{if .}}-i{{split}}{{.}}{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b BamToBed) BuildCommand() (*exec.Cmd, error) {
	if b.Input == "" {
		return nil, ErrMissingRequired
	}
	return command(b)
}

// BamCoverage defines parameters for deepTools bamCoverage.
type BamCoverage struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}bamCoverage{{end}}"` // bamCoverage

	Input     string `buildarg:"{{if .}}--bam{{split}}{{.}}{{end}}"`           // -b, indexed BAM
	Output    string `buildarg:"{{if .}}--outFileName{{split}}{{.}}{{end}}"`   // -o
	Format    string `buildarg:"{{if .}}--outFileFormat{{split}}{{.}}{{end}}"` // bigwig or bedgraph
	Normalize string `buildarg:"{{if .}}--normalizeUsing{{split}}{{.}}{{end}}"`
	BinSize   int    `buildarg:"{{if .}}--binSize{{split}}{{.}}{{end}}"`
	Threads   int    `buildarg:"{{if .}}--numberOfProcessors{{split}}{{.}}{{end}}"` // -p
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b BamCoverage) BuildCommand() (*exec.Cmd, error) {
	if b.Input == "" || b.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(b)
}

// CallPeak defines parameters for macs2 callpeak.
type CallPeak struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}macs2{{end}}{{split}}callpeak"` // macs2 callpeak

	Treatment  string `buildarg:"{{if .}}--treatment{{split}}{{.}}{{end}}"` // -t
	Format     string `buildarg:"{{if .}}--format{{split}}{{.}}{{end}}"`    // -f: BED, BEDPE, BAM, ...
	GenomeSize string `buildarg:"{{if .}}--gsize{{split}}{{.}}{{end}}"`     // -g: hs, mm, ce, dm or a number
	Name       string `buildarg:"{{if .}}--name{{split}}{{.}}{{end}}"`      // -n
	OutDir     string `buildarg:"{{if .}}--outdir{{split}}{{.}}{{end}}"`

	Broad   bool   `buildarg:"{{if .}}--broad{{end}}"`
	KeepDup string `buildarg:"{{if .}}--keep-dup{{split}}{{.}}{{end}}"`

	// NoModel disables shifting-model building; Shift and ExtSize are then
	// used to place fragments.
	NoModel bool `buildarg:"{{if .}}--nomodel{{end}}"`
	Shift   int  `buildarg:"{{if .}}--shift{{split}}{{.}}{{end}}"`
	ExtSize int  `buildarg:"{{if .}}--extsize{{split}}{{.}}{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in c.
func (c CallPeak) BuildCommand() (*exec.Cmd, error) {
	if c.Treatment == "" || c.GenomeSize == "" || c.Name == "" {
		return nil, ErrMissingRequired
	}
	return command(c)
}

// BroadPeaks returns the path of the broad peak file written by c.
func (c CallPeak) BroadPeaks() string {
	return filepath.Join(c.OutDir, c.Name+"_peaks.broadPeak")
}
