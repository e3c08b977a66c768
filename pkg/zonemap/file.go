package zonemap

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// FileName returns the zone map file name of column.
func FileName(column string) string {
	return column + "_zone_map.txt"
}

// Write serializes zm: the first line is "true" for a numeric column and
// "false" otherwise, followed by one min,max,start,end line per zone in row
// order. Bounds containing commas or quotes are CSV-quoted.
func (zm *ZoneMap) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := cw.Write([]string{strconv.FormatBool(zm.Domain == DomainNumeric)}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write zone map")
	}
	for _, z := range zm.Zones {
		rec := []string{
			z.Min,
			z.Max,
			strconv.FormatInt(z.Start, 10),
			strconv.FormatInt(z.End, 10),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write zone map").
				WithDetail("column", zm.Column)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write zone map").
			WithDetail("column", zm.Column)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush zone map").
			WithDetail("column", zm.Column)
	}
	return nil
}

// WriteFile writes zm to path.
func (zm *ZoneMap) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create zone map file").
			WithDetail("path", path)
	}
	if err := zm.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close zone map file").
			WithDetail("path", path)
	}
	return nil
}

// ReadFile loads the zone map of column from path. chunkSize and records come
// from the store metadata and are used to validate the zone count.
func ReadFile(column, path string, chunkSize, records int) (*ZoneMap, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeMissingArtifact, "zone map not found").
				WithDetail("column", column).
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open zone map").
			WithDetail("path", path)
	}
	defer f.Close()
	return Read(column, f, chunkSize, records)
}

// Read parses a zone map and checks that its zones are contiguous and cover
// exactly records rows at chunkSize rows per zone.
func Read(column string, r io.Reader, chunkSize, records int) (*ZoneMap, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrorTypeMalformedInput, "zone map is empty").
				WithDetail("column", column)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to read zone map header").
			WithDetail("column", column)
	}
	numeric, err := strconv.ParseBool(first[0])
	if err != nil || len(first) != 1 {
		return nil, errors.New(errors.ErrorTypeMalformedInput, "zone map header must be true or false").
			WithDetail("column", column)
	}

	zm := &ZoneMap{
		Column:    column,
		Domain:    DomainText,
		ChunkSize: chunkSize,
		Records:   records,
	}
	if numeric {
		zm.Domain = DomainNumeric
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to read zone").
				WithDetail("column", column).
				WithDetail("zone", len(zm.Zones))
		}
		z, err := parseZone(rec, zm.Domain)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "invalid zone").
				WithDetail("column", column).
				WithDetail("zone", len(zm.Zones))
		}
		zm.Zones = append(zm.Zones, z)
	}

	if err := zm.validate(); err != nil {
		return nil, err
	}
	return zm, nil
}

func parseZone(rec []string, domain Domain) (Zone, error) {
	if len(rec) != 4 {
		return Zone{}, errors.Newf(errors.ErrorTypeMalformedInput, "expected 4 fields, got %d", len(rec))
	}
	z := Zone{Min: rec[0], Max: rec[1]}

	var err error
	if z.Start, err = strconv.ParseInt(rec[2], 10, 64); err != nil {
		return Zone{}, err
	}
	if z.End, err = strconv.ParseInt(rec[3], 10, 64); err != nil {
		return Zone{}, err
	}

	if domain == DomainNumeric {
		var ok bool
		if z.minNum, ok = ParseNumber(z.Min); !ok {
			return Zone{}, errors.Newf(errors.ErrorTypeMalformedInput, "numeric zone bound %q", z.Min)
		}
		if z.maxNum, ok = ParseNumber(z.Max); !ok {
			return Zone{}, errors.Newf(errors.ErrorTypeMalformedInput, "numeric zone bound %q", z.Max)
		}
	}
	return z, nil
}

func (zm *ZoneMap) validate() error {
	if want := ZoneCount(zm.Records, zm.ChunkSize); want != len(zm.Zones) {
		return errors.Newf(errors.ErrorTypeMetadataMismatch, "zone map has %d zones, store metadata implies %d", len(zm.Zones), want).
			WithDetail("column", zm.Column).
			WithDetail("chunk_size", zm.ChunkSize).
			WithDetail("records", zm.Records)
	}
	for i, z := range zm.Zones {
		if z.Start > z.End || z.Start < 0 {
			return errors.Newf(errors.ErrorTypeMalformedInput, "zone %d has span [%d,%d)", i, z.Start, z.End).
				WithDetail("column", zm.Column)
		}
		if i > 0 && zm.Zones[i-1].End != z.Start {
			return errors.Newf(errors.ErrorTypeMalformedInput, "zone %d is not contiguous with zone %d", i, i-1).
				WithDetail("column", zm.Column)
		}
	}
	return nil
}
