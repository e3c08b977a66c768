package columnar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/dictionary"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

func cycle(values []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = values[i%len(values)]
	}
	return out
}

func encode(t *testing.T, column string, values []string) ([]byte, *dictionary.Dictionary) {
	t.Helper()
	dict := dictionary.Build(column, values)
	var buf bytes.Buffer
	n, err := EncodeCompressed(&buf, dict, values)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes(), dict
}

func TestEncodeCompressedHeader(t *testing.T) {
	values := cycle([]string{"2016-04", "2016-05", "2016-06"}, 40)
	data, dict := encode(t, "month", values)

	assert.Equal(t, []byte{0, 0, 0, 2, 0, 0, 0, 40}, data[:HeaderSize])
	assert.Len(t, data, HeaderSize+10) // 40 codes * 2 bits

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, Header{BitsPerValue: 2, Records: 40}, h)
	require.NoError(t, CheckHeader(h, dict))
}

func TestCompressedRoundTrip(t *testing.T) {
	for _, distinct := range []int{2, 3, 5, 17, 64, 200, 1025} {
		t.Run(fmt.Sprintf("distinct=%d", distinct), func(t *testing.T) {
			pool := make([]string, distinct)
			for i := range pool {
				pool[i] = fmt.Sprintf("v%05d", (i*7919)%distinct)
			}
			values := cycle(pool, distinct*11+3)

			data, dict := encode(t, "c", values)
			decoded, err := DecodeCompressed(data, dict)
			require.NoError(t, err)
			assert.Equal(t, values, decoded)
		})
	}
}

func TestDecodeRejectsWidthMismatch(t *testing.T) {
	values := cycle([]string{"a", "b", "c"}, 30)
	data, _ := encode(t, "c", values)

	// Same record count, different cardinality: 5 distinct values need 3 bits.
	other := dictionary.Build("c", cycle([]string{"a", "b", "c", "d", "e"}, 30))

	_, err := DecodeCompressed(data, other)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMetadataMismatch))
}

func TestDecodeTruncatedStream(t *testing.T) {
	values := cycle([]string{"a", "b", "c"}, 40)
	data, dict := encode(t, "c", values)

	_, err := DecodeCompressed(data[:len(data)-3], dict)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnexpectedEOF))

	_, err = ReadHeader(data[:5])
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnexpectedEOF))
}

func TestDecodeUnknownCode(t *testing.T) {
	// Three distinct values in 2 bits leave code 3 unassigned.
	values := cycle([]string{"a", "b", "c"}, 40)
	data, dict := encode(t, "c", values)

	corrupt := append([]byte(nil), data...)
	corrupt[HeaderSize] = 0xFF

	_, err := DecodeCompressed(corrupt, dict)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownCode))
}

func TestDecodeSpansMatchesZones(t *testing.T) {
	values := cycle([]string{"ANG MO KIO", "BEDOK", "BISHAN", "YISHUN", "TAMPINES"}, 43)
	data, dict := encode(t, "town", values)

	zm, err := zonemap.BuildCoded("town", values, 8, dict.BitsPerValue())
	require.NoError(t, err)
	require.Equal(t, 6, zm.Len())

	spans := zm.Spans([]uint32{1, 3, 5})
	decoded, err := DecodeSpans(data, dict, spans)
	require.NoError(t, err)

	assert.Equal(t, values[8:16], decoded[0])
	assert.Equal(t, values[24:32], decoded[1])
	assert.Equal(t, values[40:43], decoded[2])
}

func TestEncodePlain(t *testing.T) {
	var buf bytes.Buffer
	n, err := EncodePlain(&buf, []string{"300000", "", "250000.5"})
	require.NoError(t, err)
	assert.Equal(t, "300000\n\n250000.5\n", buf.String())
	assert.Equal(t, int64(buf.Len()), n)

	_, err = EncodePlain(&bytes.Buffer{}, []string{"two\nlines"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedInput))
}

func TestSplitLines(t *testing.T) {
	got, err := SplitLines([]byte("a\n\nc\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, got)

	_, err = SplitLines([]byte("a\nb"), 2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnexpectedEOF))

	_, err = SplitLines([]byte("a\nb\n"), 3)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMetadataMismatch))

	got, err = SplitLines(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMetadataRoundTrip(t *testing.T) {
	m := &Metadata{
		ChunkSize: 800,
		Records:   1200,
		Columns: []ColumnMeta{
			{Name: "month", Compressed: true},
			{Name: "resale_price", Compressed: false},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	assert.Equal(t, "# Chunk size: 800\n# Number of records: 1200\nmonth,true\nresale_price,false\n", buf.String())

	parsed, err := ParseMetadata(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
	assert.Equal(t, []string{"month", "resale_price"}, parsed.Names())

	c, ok := parsed.Column("month")
	require.True(t, ok)
	assert.True(t, c.Compressed)
	_, ok = parsed.Column("town")
	assert.False(t, ok)
}

func TestMetadataRejectsUnreadableNames(t *testing.T) {
	for _, name := range []string{"# Chunk size: 8", "#town", " month", "a\nb", ""} {
		m := &Metadata{ChunkSize: 8, Records: 1, Columns: []ColumnMeta{{Name: name}}}
		err := m.Write(io.Discard)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), name)
	}
}

func TestParseMetadataErrors(t *testing.T) {
	inputs := []string{
		"month,true\n",
		"# Chunk size: 800\nmonth,true\n",
		"# Chunk size: 12\n# Number of records: 3\n",
		"# Chunk size: 8\n# Number of records: 3\nmonth,yes\n",
		"# Chunk size: 8\n# Number of records: 3\nmonth,true\nmonth,false\n",
	}
	for _, in := range inputs {
		_, err := ParseMetadata(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout(" Plain ")
	require.NoError(t, err)
	assert.Equal(t, LayoutPlain, l)

	_, err = ParseLayout("zipped")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
