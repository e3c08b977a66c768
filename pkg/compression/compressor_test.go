package compression

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// monthColumn resembles a .col file: few distinct values, long runs.
func monthColumn(rows int) []byte {
	var b strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "2016-%02d\n", 1+(i/500)%12)
	}
	return []byte(b.String())
}

func TestCompressorRoundTrip(t *testing.T) {
	data := monthColumn(5000)
	for _, alg := range []Algorithm{Gzip, Snappy, LZ4, Zstd, S2} {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(fmt.Sprintf("%s/%s", alg, level), func(t *testing.T) {
				c, err := NewCompressor(&Config{Algorithm: alg, Level: level})
				require.NoError(t, err)
				assert.Equal(t, alg, c.Algorithm())
				assert.Equal(t, level, c.Level())

				compressed, err := c.Compress(data)
				require.NoError(t, err)
				assert.Less(t, len(compressed), len(data)/4)

				got, err := c.Decompress(compressed)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(data, got))
			})
		}
	}
}

func TestCompressStreamDecompresses(t *testing.T) {
	data := monthColumn(2000)
	// Snappy and S2 streams are framed; Decompress reads single blocks.
	for _, alg := range []Algorithm{Gzip, LZ4, Zstd} {
		c, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, c.CompressStream(&buf, bytes.NewReader(data)))

		got, err := c.Decompress(buf.Bytes())
		require.NoError(t, err, alg)
		assert.True(t, bytes.Equal(data, got), alg)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Zstd, c.Algorithm())
}

func BenchmarkCompressMonthColumn(b *testing.B) {
	data := monthColumn(100000)
	for _, alg := range Baselines {
		c, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(string(alg), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := c.Compress(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
