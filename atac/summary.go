package atac

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"github.com/grailbio/atacseq/encoding/fastq"
	"github.com/grailbio/atacseq/flagstat"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Metric is one measurement recorded in the run summary. The tags name the
// columns of the summary table.
type Metric struct {
	Stage  string `tsv:"stage"`
	Step   string `tsv:"step"`
	File   string `tsv:"file"`
	Metric string `tsv:"metric"`
	Value  int64  `tsv:"value"`
}

// Summary collects the metrics measured during a run.
type Summary struct {
	mu      sync.Mutex
	metrics []Metric
}

// Add records a metric. Only the base name of path is kept.
func (s *Summary) Add(stage, step, path, metric string, value int64) {
	s.mu.Lock()
	s.metrics = append(s.metrics, Metric{
		Stage:  stage,
		Step:   step,
		File:   filepath.Base(path),
		Metric: metric,
		Value:  value,
	})
	s.mu.Unlock()
}

// AddReads records read and base counts of a FASTQ file.
func (s *Summary) AddReads(stage, step, path string, stats fastq.Stats) {
	s.Add(stage, step, path, "reads", stats.Reads)
	s.Add(stage, step, path, "bases", stats.Bases)
}

// AddFlagstat records the headline counts of a flagstat report. QC-failed
// records are included in the totals.
func (s *Summary) AddFlagstat(stage, step, path string, fs flagstat.Flagstat) {
	s.Add(stage, step, path, "total", fs.Passed.Total+fs.Failed.Total)
	s.Add(stage, step, path, "mapped", fs.Passed.Mapped+fs.Failed.Mapped)
	s.Add(stage, step, path, "duplicates", fs.Passed.Duplicate+fs.Failed.Duplicate)
	s.Add(stage, step, path, "properly_paired", fs.Passed.ProperPair+fs.Failed.ProperPair)
}

// Metrics returns a copy of the recorded metrics in recording order.
func (s *Summary) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Metric(nil), s.metrics...)
}

// Lookup returns the value of the first metric matching step and name.
func (s *Summary) Lookup(step, metric string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		if m.Step == step && m.Metric == metric {
			return m.Value, true
		}
	}
	return 0, false
}

// WriteTo writes the summary as a TSV table with a header row.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tsv.NewWriter(cw)
	for _, col := range []string{"stage", "step", "file", "metric", "value"} {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return cw.n, err
	}
	for _, m := range s.Metrics() {
		tw.WriteString(m.Stage)
		tw.WriteString(m.Step)
		tw.WriteString(m.File)
		tw.WriteString(m.Metric)
		tw.WriteInt64(m.Value)
		if err := tw.EndLine(); err != nil {
			return cw.n, err
		}
	}
	err := tw.Flush()
	return cw.n, err
}

// WritePath writes the summary to path.
func (s *Summary) WritePath(ctx context.Context, path string) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, f, &err)
	_, err = s.WriteTo(f.Writer(ctx))
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
