/*Package interval implements interval-union operations in a manner suited to
  sets of genomic coordinates represented by BED files, such as the ENCODE
  blacklists.
  (Note the 'union'.  Overlapping intervals are merged, not tracked
  separately.)
  All coordinates are zero-based and half-open.  Every position must fit in
  a PosType, which is int32 since that's what BAM files are limited to.
*/
package interval
