package atac

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

// Genome is a preset reference build: a Bowtie2 index laid out as in
// Illumina iGenomes, the MACS2 effective genome size code and the ENCODE
// blacklist published for the build.
type Genome struct {
	Build   string
	Species string
	// Size is passed to macs2 callpeak --gsize.
	Size string
}

// IndexPath returns the Bowtie2 index basename of g under root.
func (g Genome) IndexPath(root string) string {
	return filepath.Join(root, g.Species, "UCSC", g.Build, "Sequence", "Bowtie2Index", "genome")
}

// BlacklistName is the file name of the gzipped blacklist of g.
func (g Genome) BlacklistName() string {
	return g.Build + "-blacklist.v2.bed.gz"
}

var genomes = map[string]Genome{
	"hg19": {"hg19", "Homo_sapiens", "hs"},
	"hg38": {"hg38", "Homo_sapiens", "hs"},
	"mm10": {"mm10", "Mus_musculus", "mm"},
	"dm6":  {"dm6", "Drosophila_melanogaster", "dm"},
	"ce11": {"ce11", "Caenorhabditis_elegans", "ce"},
}

// Builds returns the names of the preset builds in sorted order.
func Builds() []string {
	builds := make([]string, 0, len(genomes))
	for b := range genomes {
		builds = append(builds, b)
	}
	sort.Strings(builds)
	return builds
}

// LookupGenome returns the preset for build.
func LookupGenome(build string) (Genome, error) {
	g, ok := genomes[build]
	if !ok {
		return Genome{}, errors.E(errors.NotSupported,
			"unsupported genome build "+build+"; supported builds: "+strings.Join(Builds(), ", "))
	}
	return g, nil
}
