package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/atacseq/atac"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

func newCmdRoot(ctx context.Context) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "bio-atac",
		Short:    "Single-sample ATAC-seq preprocessing pipeline",
		Long:     "bio-atac aligns, filters and calls broad peaks on one ATAC-seq sample.",
		ArgsName: "reads.fastq.gz [reads_R2.fastq.gz]",
		ArgsLong: "One read file for single-end (-s) runs, R1 and R2 otherwise.",
	}
	opts := atac.DefaultOpts
	cmd.Flags.StringVar(&opts.Genome, "g", "", "Preset genome build: "+strings.Join(atac.Builds(), ", "))
	cmd.Flags.StringVar(&opts.Index, "i", "", "Custom bowtie2 index basename; needs -b and -c")
	cmd.Flags.StringVar(&opts.Blacklist, "b", "", "Custom blacklist BED, plain or gzipped")
	cmd.Flags.StringVar(&opts.GenomeSize, "c", "", "Custom MACS2 genome size: hs, mm, ce, dm or a number")
	cmd.Flags.StringVar(&opts.Prefix, "p", "", "Output prefix. Defaults to the first read file name up to its first '.'")
	cmd.Flags.IntVar(&opts.Threads, "t", opts.Threads, "Threads given to each tool")
	cmd.Flags.BoolVar(&opts.SingleEnd, "s", false, "Single-end reads")
	cmd.Flags.StringVar(&opts.Dir, "dir", opts.Dir, "Working directory for all outputs")
	cmd.Flags.StringVar(&opts.GenomeRoot, "genome-root", "", "Root of the preset bowtie2 index tree. Defaults to $GENOME_ROOT")
	cmd.Flags.StringVar(&opts.Picard, "picard", "", "Path of picard.jar. Defaults to $PICARD_JAR")
	cmd.Flags.StringVar(&opts.MarkDup, "markdup", opts.MarkDup, "Paired-end duplicate marker: picard or doppelmark")
	cmd.Flags.StringVar(&opts.Mito, "mito", opts.Mito, "Name of the mitochondrial reference")
	cmd.Flags.IntVar(&opts.MinLength, "min-length", opts.MinLength, "Shortest trimmed read kept")
	cmd.Flags.BoolVar(&opts.SEProperPair, "se-proper-pair", false, "Require the proper-pair flag when filtering single-end reads")
	cmd.Flags.BoolVar(&opts.KeepIntermediates, "keep-intermediates", false, "Keep superseded intermediate files")
	cmd.Flags.BoolVar(&opts.DryRun, "dry-run", false, "Print the commands instead of running them")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return run(ctx, env, opts, argv)
	})
	return cmd
}

func run(ctx context.Context, env *cmdline.Env, opts atac.Opts, argv []string) (err error) {
	if len(argv) == 0 {
		return env.UsageErrorf("no read files given")
	}
	if opts.Picard == "" {
		opts.Picard = env.Vars["PICARD_JAR"]
	}
	if opts.GenomeRoot == "" {
		opts.GenomeRoot = env.Vars["GENOME_ROOT"]
	}
	cfg, err := atac.NewConfig(opts, argv)
	if err != nil {
		return env.UsageErrorf("%v", err)
	}

	var exec tool.Executor = tool.DryRun{W: env.Stdout}
	if !cfg.DryRun {
		if err = tool.Check(env.Vars, cfg.Requirements()); err != nil {
			return env.UsageErrorf("%v", err)
		}
		exec = tool.Exec{Env: environ(env.Vars), Stderr: env.Stderr}
	}
	p := atac.New(cfg, exec)
	p.Plan = env.Stdout

	if !cfg.DryRun {
		restore, err := mirrorLog(p.Layout, env.Stderr)
		if err != nil {
			return err
		}
		defer restore()
	}
	res, err := p.Run(ctx)
	if err != nil {
		log.Error.Printf("%v", err)
		return err
	}
	if !cfg.DryRun {
		fmt.Fprintf(env.Stdout, "filtered BAM: %s\n", res.Filtered.BAM)
		fmt.Fprintf(env.Stdout, "coverage:     %s\n", res.Track.BigWig)
		fmt.Fprintf(env.Stdout, "peaks:        %s\n", res.Peaks.Filtered)
		fmt.Fprintf(env.Stdout, "summary:      %s\n", res.Summary)
	}
	return nil
}

// mirrorLog copies the log output to the run's pipeline log in addition to
// w. The returned function restores the previous output.
func mirrorLog(l atac.Layout, w io.Writer) (func(), error) {
	if err := os.MkdirAll(l.LogDir(), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.PipelineLog(), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	prev := stdlog.Writer()
	stdlog.SetOutput(io.MultiWriter(w, f))
	return func() {
		stdlog.SetOutput(prev)
		if err := f.Close(); err != nil {
			log.Error.Printf("close %s: %v", l.PipelineLog(), err)
		}
	}, nil
}

// environ converts vars into the KEY=VALUE form of a child environment.
func environ(vars map[string]string) []string {
	if vars == nil {
		return nil
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func main() {
	stdlog.SetFlags(stdlog.Ldate | stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile)
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Printf("received %v, stopping", s)
		cancel()
	}()

	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot(ctx))
}
