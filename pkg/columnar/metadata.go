package columnar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// Layout selects how a store's columns are written.
type Layout string

const (
	// LayoutCompressed dictionary-codes every eligible column.
	LayoutCompressed Layout = "compressed"
	// LayoutPlain writes every column as newline-delimited text.
	LayoutPlain Layout = "plain"
)

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutCompressed, LayoutPlain:
		return l, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown store layout %q", s)
	}
}

// MetadataFile is the name of the per-store metadata file.
const MetadataFile = "metadata.txt"

// ColFile returns the plain column file name.
func ColFile(column string) string { return column + ".col" }

// DictFile returns the dictionary file name.
func DictFile(column string) string { return column + ".dict" }

// CmpFile returns the compressed code stream file name.
func CmpFile(column string) string { return column + ".cmp" }

// ColumnMeta describes how one column is stored.
type ColumnMeta struct {
	Name       string
	Compressed bool
}

// Metadata is the content of metadata.txt.
type Metadata struct {
	ChunkSize int
	Records   int
	Columns   []ColumnMeta
}

const (
	metaChunk   = "# Chunk size: "
	metaRecords = "# Number of records: "
)

// Column returns the metadata of the named column.
func (m *Metadata) Column(name string) (ColumnMeta, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// Names returns the column names in table order.
func (m *Metadata) Names() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Write serializes m in the metadata.txt format. Column names must not
// start with the comment marker or carry surrounding whitespace.
func (m *Metadata) Write(w io.Writer) error {
	for _, c := range m.Columns {
		if c.Name == "" || strings.HasPrefix(c.Name, "#") || strings.ContainsAny(c.Name, "\n\r") ||
			strings.TrimSpace(c.Name) != c.Name {
			return errors.Newf(errors.ErrorTypeValidation, "column name %q cannot be stored in metadata", c.Name)
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%d\n", metaChunk, m.ChunkSize)
	fmt.Fprintf(bw, "%s%d\n", metaRecords, m.Records)
	for _, c := range m.Columns {
		fmt.Fprintf(bw, "%s,%t\n", c.Name, c.Compressed)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write store metadata")
	}
	return nil
}

// WriteMetadata writes m to dir/metadata.txt.
func WriteMetadata(dir string, m *Metadata) error {
	path := filepath.Join(dir, MetadataFile)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create store metadata").
			WithDetail("path", path)
	}
	if err := m.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close store metadata").
			WithDetail("path", path)
	}
	return nil
}

// ReadMetadata loads dir/metadata.txt.
func ReadMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, MetadataFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeMissingArtifact, "store metadata not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open store metadata").
			WithDetail("path", path)
	}
	defer f.Close()

	m, err := ParseMetadata(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "invalid store metadata").
			WithDetail("path", path)
	}
	return m, nil
}

// ParseMetadata parses the metadata.txt format.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	m := &Metadata{ChunkSize: -1, Records: -1}
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, metaChunk):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(metaChunk):]))
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "invalid chunk size")
			}
			m.ChunkSize = n
			continue
		case strings.HasPrefix(line, metaRecords):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(metaRecords):]))
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "invalid record count")
			}
			m.Records = n
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}

		idx := strings.LastIndexByte(line, ',')
		if idx <= 0 {
			return nil, errors.Newf(errors.ErrorTypeMalformedInput, "invalid column line %q", line)
		}
		compressed, err := strconv.ParseBool(line[idx+1:])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "invalid compression flag").
				WithDetail("line", line)
		}
		name := line[:idx]
		if seen[name] {
			return nil, errors.Newf(errors.ErrorTypeMalformedInput, "column %q listed twice", name)
		}
		seen[name] = true
		m.Columns = append(m.Columns, ColumnMeta{Name: name, Compressed: compressed})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read store metadata")
	}

	if m.Records < 0 {
		return nil, errors.New(errors.ErrorTypeMalformedInput, "record count missing")
	}
	if m.ChunkSize < 0 {
		return nil, errors.New(errors.ErrorTypeMalformedInput, "chunk size missing")
	}
	if err := zonemap.CheckChunkSize(m.ChunkSize); err != nil {
		return nil, err
	}
	return m, nil
}
