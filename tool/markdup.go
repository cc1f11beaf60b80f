package tool

import "os/exec"

// MarkDuplicates defines parameters for Picard MarkDuplicates. Picard is a
// declared dependency: Jar names an installed picard.jar, it is never
// downloaded by the pipeline.
type MarkDuplicates struct {
	Java   string `buildarg:"{{if .}}{{.}}{{else}}java{{end}}"` // java
	Memory string `buildarg:"{{if .}}-Xmx{{.}}{{end}}"`          // JVM heap, e.g. "4g"
	Jar    string `buildarg:"-jar{{split}}{{.}}{{split}}MarkDuplicates"`

	Input   string `buildarg:"I={{.}}"`
	Output  string `buildarg:"O={{.}}"`
	Metrics string `buildarg:"M={{.}}"`

	RemoveDuplicates bool   `buildarg:"REMOVE_DUPLICATES={{.}}"`
	Stringency       string `buildarg:"{{if .}}VALIDATION_STRINGENCY={{.}}{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in m.
func (m MarkDuplicates) BuildCommand() (*exec.Cmd, error) {
	if m.Jar == "" || m.Input == "" || m.Output == "" || m.Metrics == "" {
		return nil, ErrMissingRequired
	}
	return command(m)
}

// Doppelmark defines parameters for the doppelmark duplicate marker. It is an
// alternative to Picard that needs no JVM but does need a BAM index.
type Doppelmark struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}doppelmark{{end}}"` // doppelmark

	Input       string `buildarg:"{{if .}}--bam{{split}}{{.}}{{end}}"`
	Index       string `buildarg:"{{if .}}--index{{split}}{{.}}{{end}}"`
	Output      string `buildarg:"{{if .}}--output{{split}}{{.}}{{end}}"`
	Metrics     string `buildarg:"{{if .}}--metrics{{split}}{{.}}{{end}}"`
	Parallelism int    `buildarg:"{{if .}}--parallelism{{split}}{{.}}{{end}}"`
	RemoveDups  bool   `buildarg:"{{if .}}--remove-dups{{end}}"`
}

// BuildCommand returns an exec.Cmd built from the parameters in d.
func (d Doppelmark) BuildCommand() (*exec.Cmd, error) {
	if d.Input == "" || d.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(d)
}
