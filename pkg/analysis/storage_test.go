package analysis

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/testutil"
)

func buildPair(t *testing.T, rows int) (plain, coded *columnar.Store) {
	t.Helper()
	tbl := testutil.ResaleTable(t, testutil.ResaleOptions{Rows: rows, Seed: 7})
	plain = testutil.BuildStore(t, tbl, testutil.StoreOptions{Layout: columnar.LayoutPlain})
	coded = testutil.BuildStore(t, tbl, testutil.StoreOptions{Layout: columnar.LayoutCompressed})
	return plain, coded
}

func TestCompare(t *testing.T) {
	plain, coded := buildPair(t, 2000)

	r, err := Compare(context.Background(), plain.Dir(), coded.Dir(), Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, 2000, r.Records)
	require.Len(t, r.Columns, len(testutil.ResaleColumns))

	codedColumns := map[string]bool{"month": true, "town": true, "flat_type": true, "floor_area_sqm": true}
	var plainTotal, storedTotal int64
	for _, c := range r.Columns {
		assert.Equal(t, codedColumns[c.Name], c.Compressed, c.Name)
		if c.Compressed {
			assert.Less(t, c.StoredBytes, c.PlainBytes, c.Name)
			assert.Greater(t, c.ReductionPercent, 0.0, c.Name)
		} else {
			assert.Equal(t, c.PlainBytes, c.StoredBytes, c.Name)
			assert.Zero(t, c.ReductionPercent, c.Name)
		}
		assert.Positive(t, c.ZoneMapBytes, c.Name)

		require.Len(t, c.Baselines, len(compression.Baselines), c.Name)
		for alg, n := range c.Baselines {
			assert.Positive(t, n, "%s %s", c.Name, alg)
		}
		plainTotal += c.PlainBytes
		storedTotal += c.StoredBytes
	}
	assert.Equal(t, plainTotal, r.PlainBytes)
	assert.Equal(t, storedTotal, r.StoredBytes)
	assert.Greater(t, r.ReductionPercent, 0.0)

	info, err := os.Stat(filepath.Join(plain.Dir(), columnar.ColFile("month")))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), r.Columns[0].PlainBytes)
}

func TestCompareSelectedBaselines(t *testing.T) {
	plain, coded := buildPair(t, 500)

	r, err := Compare(context.Background(), plain.Dir(), coded.Dir(), Options{
		Baselines: []compression.Algorithm{compression.Gzip},
		Workers:   1,
	})
	require.NoError(t, err)
	require.Len(t, r.Baselines, 1)
	assert.Positive(t, r.Baselines[compression.Gzip])
}

// lossyCompressor drops the last byte on decompression.
type lossyCompressor struct{ compression.Compressor }

func (l lossyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := l.Compressor.Decompress(data)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

func TestBaselineSizeRoundTrips(t *testing.T) {
	data := bytes.Repeat([]byte("2016-04\n"), 1000)
	zstd, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Zstd, Level: compression.Default})
	require.NoError(t, err)

	n, err := baselineSize(zstd, data)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Less(t, n, int64(len(data)))

	_, err = baselineSize(lossyCompressor{zstd}, data)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestCompareRecordMismatch(t *testing.T) {
	plain, _ := buildPair(t, 500)
	_, coded := buildPair(t, 600)

	_, err := Compare(context.Background(), plain.Dir(), coded.Dir(), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMetadataMismatch))
}

func TestCompareMissingFile(t *testing.T) {
	plain, coded := buildPair(t, 500)
	require.NoError(t, os.Remove(filepath.Join(coded.Dir(), columnar.DictFile("town"))))

	_, err := Compare(context.Background(), plain.Dir(), coded.Dir(), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))

	_, err = Compare(context.Background(), t.TempDir(), coded.Dir(), Options{})
	assert.True(t, errors.IsRecoverable(err))
}

func TestCompareCancelled(t *testing.T) {
	plain, coded := buildPair(t, 500)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compare(ctx, plain.Dir(), coded.Dir(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteText(t *testing.T) {
	r := &StorageReport{
		Columns: []ColumnStorage{{
			Name:             "month",
			Compressed:       true,
			PlainBytes:       800,
			StoredBytes:      40,
			ReductionPercent: 95,
			Baselines:        map[compression.Algorithm]int64{compression.Zstd: 30},
		}},
		PlainBytes:       800,
		StoredBytes:      40,
		ReductionPercent: 95,
		Baselines:        map[compression.Algorithm]int64{compression.Zstd: 30},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "zstd")
	assert.Contains(t, out, "month")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "total")
}
