// Package atac implements a single-sample ATAC-seq preprocessing pipeline.
// A run takes raw single- or paired-end reads through quality control,
// adapter trimming, alignment, duplicate and mitochondrial filtering,
// coverage track generation and broad peak calling.
//
// The heavy lifting is done by external programs (see package tool). The
// pipeline sequences them, checks every step, corrects read positions for the
// Tn5 insertion offset, removes blacklisted peaks and records a summary of
// each filtering step.
package atac

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/biogo/external"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Stage names, in execution order.
const (
	StageSetup  = "setup"
	StageAlign  = "align"
	StageFilter = "filter"
	StageTrack  = "track"
	StagePeaks  = "peaks"
)

// StageError reports the step that stopped a run.
type StageError struct {
	Stage string
	Step  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// Alignment is the output of the alignment stage.
type Alignment struct {
	Trimmed Reads
	SAM     string
}

// Filtered is the output of the filtering stage. BEDPE is set only for
// paired-end runs.
type Filtered struct {
	BAM   string
	Index string
	BEDPE string
}

// Track is the output of the signal-track stage.
type Track struct {
	BigWig string
}

// Peaks is the output of the peak-calling stage.
type Peaks struct {
	Shifted  string
	Raw      string
	Filtered string
}

// Result lists the final artifacts of a run.
type Result struct {
	Alignment Alignment
	Filtered  Filtered
	Track     Track
	Peaks     Peaks
	Summary   string
}

// Pipeline runs the stages of one sample.
type Pipeline struct {
	Config Config
	Layout Layout
	Exec   tool.Executor
	// Plan receives a line for every built-in step in a dry run.
	Plan io.Writer
	// HTTPClient fetches preset blacklists. Nil means http.DefaultClient.
	HTTPClient *http.Client
	Summary    Summary
}

// New returns a pipeline for cfg that runs external programs with exec.
func New(cfg Config, exec tool.Executor) *Pipeline {
	return &Pipeline{
		Config: cfg,
		Layout: NewLayout(cfg),
		Exec:   exec,
		Plan:   ioutil.Discard,
	}
}

// Run executes every stage in order and stops at the first failing step,
// whose error is returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var (
		res   Result
		err   error
		start = time.Now()
	)
	log.Printf("atac: %s run of %s, prefix %s, %d threads", p.Config.Mode, p.Config.Input.R1, p.Config.Prefix, p.Config.Threads)
	if err = p.setup(ctx); err != nil {
		return res, err
	}
	if res.Alignment, err = p.align(ctx); err != nil {
		return res, err
	}
	if res.Filtered, err = p.filter(ctx, res.Alignment); err != nil {
		return res, err
	}
	if res.Track, err = p.track(ctx, res.Filtered); err != nil {
		return res, err
	}
	if res.Peaks, err = p.peaks(ctx, res.Filtered); err != nil {
		return res, err
	}
	res.Summary = p.Layout.Summary()
	err = p.builtin(ctx, StagePeaks, "write summary "+res.Summary, func() error {
		return p.Summary.WritePath(ctx, res.Summary)
	})
	if err != nil {
		return res, err
	}
	log.Printf("atac: finished in %v", time.Since(start).Round(time.Second))
	return res, nil
}

// setup creates the output directories and fetches a preset blacklist.
func (p *Pipeline) setup(ctx context.Context) error {
	err := p.builtin(ctx, StageSetup, "create output directories", func() error {
		for _, dir := range p.Layout.Dirs() {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || p.Config.BlacklistURL == "" {
		return err
	}
	return p.builtin(ctx, StageSetup, "fetch blacklist "+p.Config.BlacklistURL, func() error {
		return FetchBlacklist(ctx, p.HTTPClient, p.Config.BlacklistURL, p.Config.Blacklist)
	})
}

// run builds and executes one external step.
func (p *Pipeline) run(ctx context.Context, stage, step string, b external.CommandBuilder, redirect func(tool.Invocation) tool.Invocation) error {
	inv, err := tool.Build(step, b)
	if err != nil {
		return &StageError{Stage: stage, Step: step, Err: err}
	}
	if redirect != nil {
		inv = redirect(inv)
	}
	if err := p.Exec.Execute(ctx, inv); err != nil {
		return &StageError{Stage: stage, Step: step, Err: err}
	}
	return nil
}

// logTo returns a redirect that appends the step's stderr to the named log.
func (p *Pipeline) logTo(name string) func(tool.Invocation) tool.Invocation {
	path := p.Layout.Log(name)
	return func(inv tool.Invocation) tool.Invocation { return inv.WithLog(path) }
}

// builtin runs a step implemented in Go. In a dry run the step is only
// announced on Plan.
func (p *Pipeline) builtin(ctx context.Context, stage, step string, fn func() error) error {
	if p.Config.DryRun {
		_, err := fmt.Fprintf(p.Plan, "# %s (built-in)\n", step)
		return err
	}
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Step: step, Err: errors.E(errors.Canceled, err)}
	}
	start := time.Now()
	if err := fn(); err != nil {
		return &StageError{Stage: stage, Step: step, Err: err}
	}
	log.Printf("%s: finished in %v", step, time.Since(start).Round(time.Millisecond))
	return nil
}

// remove deletes superseded intermediate files unless they are to be kept.
func (p *Pipeline) remove(ctx context.Context, stage string, paths ...string) error {
	if p.Config.KeepIntermediates {
		return nil
	}
	return p.removeAlways(ctx, stage, paths...)
}

// removeAlways deletes paths regardless of KeepIntermediates.
func (p *Pipeline) removeAlways(ctx context.Context, stage string, paths ...string) error {
	const step = "remove intermediates"
	if p.Config.DryRun {
		for _, path := range paths {
			if _, err := fmt.Fprintf(p.Plan, "# remove %s (built-in)\n", path); err != nil {
				return err
			}
		}
		return nil
	}
	for _, path := range paths {
		if err := file.Remove(ctx, path); err != nil {
			return &StageError{Stage: stage, Step: step, Err: err}
		}
		log.Debug.Printf("removed %s", path)
	}
	return nil
}

// openLogFile opens path for appending, creating it if needed.
func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
}
