package dictionary

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
)

func repeat(values []string, times int) []string {
	out := make([]string, 0, len(values)*times)
	for i := 0; i < times; i++ {
		out = append(out, values...)
	}
	return out
}

func TestBuildAssignsCodesInSortedOrder(t *testing.T) {
	d := Build("town", []string{"YISHUN", "BEDOK", "ANG MO KIO", "BEDOK", "YISHUN"})

	assert.Equal(t, []string{"ANG MO KIO", "BEDOK", "YISHUN"}, d.Values())
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 5, d.Records())
	assert.Equal(t, uint(2), d.BitsPerValue())

	code, ok := d.Code("BEDOK")
	require.True(t, ok)
	assert.Equal(t, uint32(1), code)

	_, ok = d.Code("PUNGGOL")
	assert.False(t, ok)

	v, err := d.Value(2)
	require.NoError(t, err)
	assert.Equal(t, "YISHUN", v)

	_, err = d.Value(3)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownCode))
}

func TestBitsPerValue(t *testing.T) {
	tests := []struct {
		distinct int
		want     uint
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{26, 5},
		{256, 8},
		{257, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BitsPerValue(tt.distinct), "distinct=%d", tt.distinct)
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name     string
		distinct int
		records  int
		want     bool
	}{
		{"single distinct value is never compressed", 1, 1000, false},
		{"ratio exactly ten percent", 10, 100, false},
		{"ratio just below ten percent", 9, 100, true},
		{"ratio above ten percent", 50, 100, false},
		{"empty column", 0, 0, false},
		{"two values many rows", 2, 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.distinct, tt.records))
		})
	}
}

func TestDictionaryEligibility(t *testing.T) {
	constant := Build("flat_type", repeat([]string{"4 ROOM"}, 100))
	assert.False(t, constant.Eligible())

	tenPercent := make([]string, 100)
	for i := range tenPercent {
		tenPercent[i] = string(rune('a' + i%10))
	}
	assert.False(t, Build("c", tenPercent).Eligible())

	months := repeat([]string{"2016-01", "2016-02", "2016-03"}, 40)
	assert.True(t, Build("month", months).Eligible())
}

func TestWriteFormat(t *testing.T) {
	d := Build("town", repeat([]string{"BEDOK", "ANG MO KIO", "CHOA CHU KANG"}, 20))

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))

	want := strings.Join([]string{
		"# Dictionary for column: town",
		"# Format: value,code",
		"# Bits used per value: 2",
		"# Number of records: 60",
		"ANG MO KIO,0",
		"BEDOK,1",
		"CHOA CHU KANG,2",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteIsDeterministic(t *testing.T) {
	values := repeat([]string{"c", "a", "b", "d", "a"}, 30)

	var first, second bytes.Buffer
	require.NoError(t, Build("x", values).Write(&first))
	require.NoError(t, Build("x", values).Write(&second))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestReadRoundTrip(t *testing.T) {
	original := Build("street", repeat([]string{"1, JALAN A", "BLK 5,6", "PLAIN"}, 50))

	var buf bytes.Buffer
	require.NoError(t, original.Write(&buf))

	loaded, err := Read("street", &buf)
	require.NoError(t, err)

	assert.Equal(t, original.Values(), loaded.Values())
	assert.Equal(t, original.BitsPerValue(), loaded.BitsPerValue())
	assert.Equal(t, original.Records(), loaded.Records())

	code, ok := loaded.Code("BLK 5,6")
	require.True(t, ok)
	assert.Equal(t, uint32(1), code)
}

func TestReadHeaderLikeValues(t *testing.T) {
	values := []string{
		"# Bits used per value: 9",
		"# Dictionary for column: town",
		"# Format: value,code",
		"# Number of records: 1",
		"",
		"PLAIN",
	}
	original := Build("remarks", repeat(values, 20))

	var buf bytes.Buffer
	require.NoError(t, original.Write(&buf))

	loaded, err := Read("remarks", &buf)
	require.NoError(t, err)
	assert.Equal(t, original.Values(), loaded.Values())
	assert.Equal(t, uint(3), loaded.BitsPerValue())
	assert.Equal(t, 120, loaded.Records())
}

func TestReadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errType errors.ErrorType
	}{
		{
			name:    "missing header",
			input:   "a,0\nb,1\n",
			errType: errors.ErrorTypeMalformedInput,
		},
		{
			name:    "sparse codes",
			input:   "# Bits used per value: 1\n# Number of records: 4\na,0\nb,2\n",
			errType: errors.ErrorTypeMalformedInput,
		},
		{
			name:    "duplicate codes",
			input:   "# Bits used per value: 1\n# Number of records: 4\na,0\nb,0\n",
			errType: errors.ErrorTypeMalformedInput,
		},
		{
			name:    "no comma",
			input:   "# Bits used per value: 1\n# Number of records: 4\nab\n",
			errType: errors.ErrorTypeMalformedInput,
		},
		{
			name:    "width disagrees with entry count",
			input:   "# Bits used per value: 4\n# Number of records: 4\na,0\nb,1\n",
			errType: errors.ErrorTypeMetadataMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read("c", strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile("town", filepath.Join(t.TempDir(), "town.dict"))
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "month.dict")
	d := Build("month", repeat([]string{"2016-04", "2016-05"}, 25))

	require.NoError(t, d.WriteFile(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	loaded, err := ReadFile("month", path)
	require.NoError(t, err)
	assert.Equal(t, d.Values(), loaded.Values())
	assert.Equal(t, "month", loaded.Column())
}
