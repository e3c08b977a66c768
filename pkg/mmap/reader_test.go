package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
)

func TestReaderRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "town.col")
	require.NoError(t, os.WriteFile(path, []byte("BEDOK\nYISHUN\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(13), r.Size())

	b, err := r.ReadRange(6, 13)
	require.NoError(t, err)
	assert.Equal(t, "YISHUN\n", string(b))
	assert.Equal(t, int64(7), r.BytesRead())

	_, err = r.ReadRange(6, 14)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Equal(t, "BEDOK\nYISHUN\n", string(r.Bytes()))
	assert.Equal(t, int64(20), r.BytesRead())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.col")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, r.Bytes())

	b, err := r.ReadRange(0, 0)
	require.NoError(t, err)
	assert.Empty(t, b)
	require.NoError(t, r.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.cmp"))
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
}
