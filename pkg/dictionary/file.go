package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/errors"
)

const (
	headerColumn  = "# Dictionary for column: "
	headerFormat  = "# Format: value,code"
	headerBits    = "# Bits used per value: "
	headerRecords = "# Number of records: "
)

// Write serializes d in the .dict text format: comment lines carrying the
// packing width and record count, then one value,code line per distinct value
// in code order.
func (d *Dictionary) Write(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	fmt.Fprintf(bw, "%s%s\n", headerColumn, d.column)
	fmt.Fprintf(bw, "%s\n", headerFormat)
	fmt.Fprintf(bw, "%s%d\n", headerBits, d.bits)
	fmt.Fprintf(bw, "%s%d\n", headerRecords, d.records)

	for code, v := range d.values {
		bw.WriteString(v)
		bw.WriteByte(',')
		bw.WriteString(strconv.Itoa(code))
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write dictionary").
			WithDetail("column", d.column)
	}
	return nil
}

// WriteFile writes d to path, replacing any existing file.
func (d *Dictionary) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create dictionary file").
			WithDetail("path", path)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close dictionary file").
			WithDetail("path", path)
	}
	return nil
}

// ReadFile loads a dictionary from path. A missing file is reported as a
// missing artifact so query paths can fall back.
func ReadFile(column, path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeMissingArtifact, "dictionary file not found").
				WithDetail("column", column).
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open dictionary file").
			WithDetail("path", path)
	}
	defer f.Close()
	return Read(column, f)
}

// Read parses the .dict text format. Value lines are split at the last comma,
// so values may themselves contain commas, and a value that reads like a
// header comment is still an entry once the header is complete. Codes must be dense, and the
// declared width must match the number of entries.
func Read(column string, r io.Reader) (*Dictionary, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		declaredBits = -1
		records      = -1
		byCode       = make(map[uint32]string)
		lineNo       int
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}

		// Header comments end once both counts are known; every later
		// line is an entry, whatever its value looks like.
		inHeader := declaredBits < 0 || records < 0
		switch {
		case !inHeader:
		case strings.HasPrefix(line, headerBits):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(headerBits):]))
			if err != nil {
				return nil, malformed(column, lineNo, "invalid bits per value", err)
			}
			declaredBits = n
			continue
		case strings.HasPrefix(line, headerRecords):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(headerRecords):]))
			if err != nil {
				return nil, malformed(column, lineNo, "invalid record count", err)
			}
			records = n
			continue
		case strings.HasPrefix(line, headerColumn), line == headerFormat:
			continue
		}

		idx := strings.LastIndexByte(line, ',')
		if idx < 0 {
			return nil, malformed(column, lineNo, "dictionary entry without code", nil)
		}
		code, err := strconv.ParseUint(line[idx+1:], 10, 32)
		if err != nil {
			return nil, malformed(column, lineNo, "invalid dictionary code", err)
		}
		if _, dup := byCode[uint32(code)]; dup {
			return nil, malformed(column, lineNo, "duplicate dictionary code", nil)
		}
		byCode[uint32(code)] = line[:idx]
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read dictionary").
			WithDetail("column", column)
	}

	if declaredBits < 0 || records < 0 {
		return nil, errors.New(errors.ErrorTypeMalformedInput, "dictionary is missing its header comments").
			WithDetail("column", column)
	}

	values := make([]string, len(byCode))
	for code, v := range byCode {
		if int64(code) >= int64(len(values)) {
			return nil, errors.Newf(errors.ErrorTypeMalformedInput, "dictionary codes are not dense: code %d with %d entries", code, len(values)).
				WithDetail("column", column)
		}
		values[code] = v
	}

	d := newDictionary(column, values, records)
	if uint(declaredBits) != d.bits {
		return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "dictionary declares %d bits per value for %d entries", declaredBits, len(values)).
			WithDetail("column", column).
			WithDetail("expected_bits", d.bits)
	}
	return d, nil
}

func malformed(column string, line int, msg string, cause error) error {
	var e *errors.Error
	if cause != nil {
		e = errors.Wrap(cause, errors.ErrorTypeMalformedInput, msg)
	} else {
		e = errors.New(errors.ErrorTypeMalformedInput, msg)
	}
	return e.WithDetail("column", column).WithDetail("line", line)
}
