package atac

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/atacseq/encoding/fastq"
	"github.com/grailbio/atacseq/tool"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// Fixture contents written by fakeExec in place of the real tools.
const (
	fakeBED = `chr1	100	150	r1/1	42	+
chr1	200	250	r2/1	42	-
chr2	300	350	r3/1	42	+
`
	fakeBEDPE = `chr1	100	150	chr1	250	300	f1	42	+	-
chr2	500	550	chr2	400	450	f2	42	-	+
.	-1	-1	chr1	10	60	f3	0	.	+
`
	fakePeaks = `chr1	100	500	s_peak_1	50	.	3.1	8.2	5.0
chr1	1500	1800	s_peak_2	60	.	3.5	9.0	6.1
chr2	100	300	s_peak_3	70	.	4.0	10.0	7.2
`
	fakeBlacklist = "chr1\t1000\t2000\tHigh Signal Region\n"
)

func testBAM(t *testing.T) []byte {
	chr1, err := sam.NewReference("chr1", "", "", 10000, nil, nil)
	require.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 20000, nil, nil)
	require.NoError(t, err)
	chrM, err := sam.NewReference("chrM", "", "", 16569, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2, chrM})
	require.NoError(t, err)

	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)}
	newRecord := func(name string, ref *sam.Reference, pos int, flags sam.Flags) *sam.Record {
		r := sam.GetFromFreePool()
		r.Name = name
		r.Ref = ref
		r.Pos = pos
		r.MateRef = ref
		r.MatePos = pos
		r.Flags = flags
		r.MapQ = 40
		r.Cigar = cigar
		r.Seq = sam.NewSeq([]byte("ACGT"))
		r.Qual = []byte("IIII")
		return r
	}
	var buf bytes.Buffer
	w, err := bam.NewWriter(&buf, header, 1)
	require.NoError(t, err)
	for _, r := range []*sam.Record{
		newRecord("a", chr1, 100, sam.Paired|sam.ProperPair|sam.Read1),
		newRecord("a", chr1, 100, sam.Paired|sam.ProperPair|sam.Read2|sam.Reverse),
		newRecord("b", chr2, 300, sam.Paired|sam.ProperPair|sam.Read1|sam.Duplicate),
		newRecord("c", chrM, 50, sam.Paired|sam.ProperPair|sam.Read1),
	} {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// writeTrimmed writes n gzipped reads to path and returns what was written.
func writeTrimmed(t *testing.T, path string, n int) fastq.Stats {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	w := fastq.NewWriter(gz)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Write(&fastq.Read{
			ID:   fmt.Sprintf("@read%d", i),
			Seq:  "ACGTACGTACGTACGTACGTACGT",
			Unk:  "+",
			Qual: "IIIIIIIIIIIIIIIIIIIIIIII",
		}))
	}
	require.NoError(t, gz.Close())
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))
	return w.Stats()
}

// fakeExec stands in for the external tools. It records every invocation
// and writes plausible outputs where the real tool would.
type fakeExec struct {
	t      *testing.T
	bam    []byte
	failAt string

	mu   sync.Mutex
	invs []tool.Invocation
	// trimmed holds the reads written for each trimmed FASTQ path.
	trimmed map[string]fastq.Stats
}

func newFakeExec(t *testing.T) *fakeExec {
	return &fakeExec{t: t, bam: testBAM(t)}
}

func (f *fakeExec) steps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var steps []string
	for _, inv := range f.invs {
		steps = append(steps, inv.Step)
	}
	return steps
}

func (f *fakeExec) invocation(step string) (tool.Invocation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invs {
		if inv.Step == step {
			return inv, true
		}
	}
	return tool.Invocation{}, false
}

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func argPrefixed(args []string, prefix string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
	}
	return ""
}

func (f *fakeExec) write(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("fake: missing output path")
	}
	return ioutil.WriteFile(path, data, 0644)
}

func (f *fakeExec) Execute(ctx context.Context, inv tool.Invocation) error {
	f.mu.Lock()
	f.invs = append(f.invs, inv)
	f.mu.Unlock()
	if inv.Step == f.failAt {
		return fmt.Errorf("%s: exit status 1", inv.Step)
	}
	if inv.Log != "" {
		if err := ioutil.WriteFile(inv.Log, []byte("# "+inv.String()+"\n"), 0644); err != nil {
			return err
		}
	}
	args := inv.Args
	last := args[len(args)-1]
	switch args[0] {
	case "fastqc":
		return nil
	case "cutadapt":
		outs := []string{argAfter(args, "--output")}
		if out := argAfter(args, "--paired-output"); out != "" {
			outs = append(outs, out)
		}
		for _, out := range outs {
			stats := writeTrimmed(f.t, out, 5)
			f.mu.Lock()
			if f.trimmed == nil {
				f.trimmed = make(map[string]fastq.Stats)
			}
			f.trimmed[out] = stats
			f.mu.Unlock()
		}
		return nil
	case "bowtie2":
		return f.write(argAfter(args, "-S"), []byte("@HD\tVN:1.6\n"))
	case "samtools":
		switch args[1] {
		case "view", "sort":
			return f.write(argAfter(args, "-o"), f.bam)
		case "rmdup":
			return f.write(last, f.bam)
		case "index":
			return f.write(last, nil)
		}
	case "java":
		return f.write(argPrefixed(args, "O="), f.bam)
	case "doppelmark":
		return f.write(argAfter(args, "--output"), f.bam)
	case "bedtools":
		data := fakeBED
		for _, arg := range args {
			if arg == "-bedpe" {
				data = fakeBEDPE
			}
		}
		return f.write(inv.Stdout, []byte(data))
	case "bamCoverage":
		return f.write(argAfter(args, "--outFileName"), []byte("bigwig"))
	case "macs2":
		dir := argAfter(args, "--outdir")
		return f.write(filepath.Join(dir, argAfter(args, "--name")+"_peaks.broadPeak"), []byte(fakePeaks))
	}
	return fmt.Errorf("fake: unexpected command %v", args)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
