// Package columnar implements strata's on-disk column store: the compressed
// column codec, the store metadata file and the ColumnSource abstraction the
// query engine reads through.
//
// # Overview
//
// Every column of a store is written in one of two physical representations:
//   - Plain: <column>.col, newline-delimited text, one value per row
//   - Dictionary-coded: <column>.dict plus <column>.cmp, a bit-packed code stream
//
// A column is dictionary-coded only when it has more than one distinct value
// and fewer than 10% distinct values. The choice is recorded per column in
// metadata.txt together with the store's chunk size and record count.
//
// # File Formats
//
// The .cmp file starts with two 4-byte big-endian integers, bits per value and
// record count, followed by one code per row packed most-significant bit first
// and zero-padded to a byte boundary:
//
//	+-------------+-------------+------------------------------+
//	| bits (u32)  | count (u32) | codes ... | zero padding     |
//	+-------------+-------------+------------------------------+
//
// metadata.txt lists one <column>,<compressed> line per column in table order:
//
//	# Chunk size: 800
//	# Number of records: 120000
//	month,true
//	town,true
//	resale_price,false
//
// # Reading
//
// Store.Source returns a ColumnSource for a column. Dictionary-coded columns
// also implement CodedSource, which exposes the dictionary and a row-ordered
// code stream so predicates can be evaluated without decoding values.
//
//	store, err := columnar.Open(dir)
//	src, err := store.Source("town")
//	values, err := src.ReadFull(ctx)
//
// Text artifacts (dictionaries and zone maps) are loaded through an
// ArtifactLoader. The default loader re-parses them on every call; a
// CachedLoader keeps parsed artifacts until the underlying file changes.
package columnar
