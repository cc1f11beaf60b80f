/*
bio-atac runs single-sample ATAC-seq preprocessing: read quality reports,
Nextera adapter trimming, bowtie2 alignment, duplicate and mitochondrial
filtering, a CPM-normalized bigWig coverage track and MACS2 broad peaks with
blacklisted regions removed.

The genome is either a preset build (-g hg19, hg38, mm10, dm6 or ce11, with
Bowtie2 indexes under -genome-root laid out as in Illumina iGenomes and the
ENCODE blacklist downloaded on first use) or a custom genome given by an
index (-i), a blacklist (-b) and a MACS2 genome size (-c).

Paired-end duplicate marking uses picard MarkDuplicates, located with -picard
or $PICARD_JAR, or doppelmark with -markdup=doppelmark.

Sample usage:
bio-atac \
    -g hg38 \
    -genome-root /refs \
    -t 16 \
    -dir out \
    sampleA_R1.fastq.gz sampleA_R2.fastq.gz

bio-atac -s -i /refs/custom/genome -b custom_blacklist.bed -c 1.2e8 sampleB.fastq.gz

Outputs are prefixed with -p, or by default with the first read file name up
to its first '.'. The required programs are checked before anything is
written; a missing program, like any other configuration error, prints usage
and exits with status 2. A failing step prints only the error, which names
the stage and step, without usage, and exits with status 1.
*/
package main
