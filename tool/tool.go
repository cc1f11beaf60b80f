// Package tool describes the external programs driven by the ATAC-seq
// pipeline. Each program is a struct whose fields carry biogo/external
// buildarg templates, so a command line is assembled from typed values
// rather than from strings. Invocations are executed by an Executor.
package tool

import (
	"context"
	"os/exec"
	"strings"

	"github.com/biogo/external"
	"github.com/grailbio/base/errors"
)

// Invocation is a single run of an external program: its argument vector and
// the files its output streams are bound to.
type Invocation struct {
	// Step names the invocation in logs and errors, e.g. "samtools sort".
	Step string
	// Args is the full argument vector; Args[0] is the program.
	Args []string
	// Stdout, if non-empty, is the file that receives standard output.
	// Otherwise standard output is sent to Log.
	Stdout string
	// Log, if non-empty, is appended with standard error. Otherwise
	// standard error goes to the executor's default writer.
	Log string
}

// Build creates an Invocation for the command produced by b.
func Build(step string, b external.CommandBuilder) (Invocation, error) {
	cmd, err := b.BuildCommand()
	if err != nil {
		return Invocation{}, errors.E(errors.Invalid, err, step)
	}
	return Invocation{Step: step, Args: cmd.Args}, nil
}

// WithStdout returns a copy of inv with standard output redirected to path.
func (inv Invocation) WithStdout(path string) Invocation {
	inv.Stdout = path
	return inv
}

// WithLog returns a copy of inv with standard error appended to path.
func (inv Invocation) WithLog(path string) Invocation {
	inv.Log = path
	return inv
}

// String renders the invocation as a shell command line.
func (inv Invocation) String() string {
	var b strings.Builder
	for i, arg := range inv.Args {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quote(arg))
	}
	if inv.Stdout != "" {
		b.WriteString(" > ")
		b.WriteString(quote(inv.Stdout))
	}
	if inv.Log != "" {
		b.WriteString(" 2>> ")
		b.WriteString(quote(inv.Log))
	}
	return b.String()
}

// quote single-quotes s if it contains characters the shell would interpret.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}

// Executor runs invocations. Execute blocks until the program exits and
// returns an error if it could not be started or exited non-zero.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) error
}

// command assembles the command line described by b.
func command(b external.CommandBuilder) (*exec.Cmd, error) {
	cl, err := external.Build(b)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}
