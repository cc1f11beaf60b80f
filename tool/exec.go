package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Exec runs invocations as child processes. A child is killed if ctx is
// canceled; there is no timeout.
type Exec struct {
	// Env, if non-nil, is the environment of the child processes.
	Env []string
	// Stderr receives the output of invocations without a Log. It defaults to
	// os.Stderr.
	Stderr io.Writer
}

// Execute implements Executor.
func (e Exec) Execute(ctx context.Context, inv Invocation) (err error) {
	if len(inv.Args) == 0 {
		return errors.E(errors.Invalid, "empty command line", inv.Step)
	}
	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Env = e.Env

	var stderr io.Writer = os.Stderr
	if e.Stderr != nil {
		stderr = e.Stderr
	}
	if inv.Log != "" {
		var logFile *os.File
		if logFile, err = openLog(inv.Log); err != nil {
			return errors.E(err, inv.Step)
		}
		defer func() {
			if cerr := logFile.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		if _, err = fmt.Fprintf(logFile, "# %s\n", inv); err != nil {
			return errors.E(err, inv.Step)
		}
		stderr = logFile
	}
	cmd.Stderr = stderr
	cmd.Stdout = stderr
	if inv.Stdout != "" {
		var out file.File
		if out, err = file.Create(ctx, inv.Stdout); err != nil {
			return errors.E(err, inv.Step)
		}
		defer file.CloseAndReport(ctx, out, &err)
		cmd.Stdout = out.Writer(ctx)
	}

	log.Debug.Printf("%s: %s", inv.Step, inv)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.E(errors.Canceled, ctx.Err(), inv.Step)
		}
		return errors.E(err, fmt.Sprintf("%s: %s", inv.Step, inv))
	}
	log.Printf("%s: finished in %v", inv.Step, time.Since(start).Round(time.Millisecond))
	return nil
}

// openLog opens path for appending, creating its directory if needed.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
}

// DryRun prints each invocation as a shell command instead of running it.
type DryRun struct {
	W io.Writer
}

// Execute implements Executor.
func (d DryRun) Execute(ctx context.Context, inv Invocation) error {
	_, err := fmt.Fprintln(d.W, inv)
	return err
}
