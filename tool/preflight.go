package tool

import (
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"v.io/x/lib/lookpath"
)

// Requirement is something that must be present on the executing machine
// before a run starts: either a program on $PATH or a file.
type Requirement struct {
	// Program is looked up in the PATH of the environment.
	Program string
	// File must exist. It is used for non-executable dependencies such as
	// picard.jar.
	File string
	// Why is shown when the requirement is not met.
	Why string
}

func (r Requirement) String() string {
	name := r.Program
	if name == "" {
		name = r.File
	}
	if r.Why == "" {
		return name
	}
	return name + " (" + r.Why + ")"
}

// Check verifies every requirement. Programs are resolved against the PATH
// in vars, the way a child process started with that environment would. All
// unmet requirements are reported, in the order given.
func Check(vars map[string]string, reqs []Requirement) error {
	missing := make([]bool, len(reqs))
	err := traverse.Each(len(reqs), func(i int) error {
		r := reqs[i]
		if r.Program != "" {
			if _, err := lookpath.Look(vars, r.Program); err != nil {
				missing[i] = true
				return nil
			}
		}
		if r.File != "" {
			if _, err := os.Stat(r.File); err != nil {
				missing[i] = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	var names []string
	for i, m := range missing {
		if m {
			names = append(names, reqs[i].String())
		}
	}
	if len(names) > 0 {
		return errors.E(errors.NotExist, "missing required programs: "+strings.Join(names, ", "))
	}
	return nil
}
