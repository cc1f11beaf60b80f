package tool

import "os/exec"

// SamtoolsView defines parameters for samtools view.
type SamtoolsView struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}view"` // samtools view

	Threads int    `buildarg:"{{if .}}-@{{split}}{{.}}{{end}}"` // additional threads
	BAM     bool   `buildarg:"{{if .}}-b{{end}}"`               // BAM output
	Output  string `buildarg:"{{if .}}-o{{split}}{{.}}{{end}}"`

	// Regions is a BED file; only alignments overlapping it are kept.
	Regions string `buildarg:"{{if .}}-L{{split}}{{.}}{{end}}"`
	// Require keeps only alignments with all of these flag bits set.
	Require uint16 `buildarg:"{{if .}}-f{{split}}{{.}}{{end}}"`
	// Exclude drops alignments with any of these flag bits set.
	Exclude uint16 `buildarg:"{{if .}}-F{{split}}{{.}}{{end}}"`

	Input string `buildarg:"{{.}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in v.
func (v SamtoolsView) BuildCommand() (*exec.Cmd, error) {
	if v.Input == "" {
		return nil, ErrMissingRequired
	}
	return command(v)
}

// SamtoolsSort defines parameters for samtools sort.
type SamtoolsSort struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}sort"` // samtools sort

	Threads int    `buildarg:"{{if .}}-@{{split}}{{.}}{{end}}"`
	ByName  bool   `buildarg:"{{if .}}-n{{end}}"` // sort by read name instead of coordinate
	Output  string `buildarg:"{{if .}}-o{{split}}{{.}}{{end}}"`

	Input string `buildarg:"{{.}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in s.
func (s SamtoolsSort) BuildCommand() (*exec.Cmd, error) {
	if s.Input == "" || s.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(s)
}

// SamtoolsIndex defines parameters for samtools index.
type SamtoolsIndex struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}index"` // samtools index

	Threads int `buildarg:"{{if .}}-@{{split}}{{.}}{{end}}"`

	Input string `buildarg:"{{.}}"`
	Index string `buildarg:"{{if .}}{{.}}{{end}}"` // default: Input + ".bai"
}

// BuildCommand returns an exec.Cmd built from the parameters in x.
func (x SamtoolsIndex) BuildCommand() (*exec.Cmd, error) {
	if x.Input == "" {
		return nil, ErrMissingRequired
	}
	return command(x)
}

// SamtoolsRmdup defines parameters for samtools rmdup.
type SamtoolsRmdup struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}rmdup"` // samtools rmdup

	SingleEnd bool `buildarg:"{{if .}}-s{{end}}"` // treat reads as single-end

	Input  string `buildarg:"{{.}}"`
	Output string `buildarg:"{{.}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in r.
func (r SamtoolsRmdup) BuildCommand() (*exec.Cmd, error) {
	if r.Input == "" || r.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(r)
}
