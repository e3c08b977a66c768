package bitstream

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
)

func TestWriteBitsNonAlignedFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	// Three 3-bit codes are 9 bits: one full byte plus one padded byte.
	require.NoError(t, w.WriteBits(5, 3)) // 101
	require.NoError(t, w.WriteBits(3, 3)) // 011
	require.NoError(t, w.WriteBits(6, 3)) // 110
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0b10101111, 0b00000000}, buf.Bytes())
	assert.Equal(t, int64(2), w.BytesWritten())

	r := NewReader(buf.Bytes())
	for _, want := range []uint32{5, 3, 6} {
		got, err := r.ReadBits(3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestWriteBitsPaddingIsZero(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteBits(1, 1))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0b10000000}, buf.Bytes())
}

func TestWriteBitsMasksHighBits(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteBits(0xFF, 4))
	require.NoError(t, w.WriteBits(0x0, 4))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0xF0}, buf.Bytes())
}

func TestHeaderThenCodes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteUint32(5))
	require.NoError(t, w.WriteUint32(3))
	require.NoError(t, w.WriteBits(17, 5))
	require.NoError(t, w.WriteBits(0, 5))
	require.NoError(t, w.WriteBits(31, 5))
	require.NoError(t, w.Flush())

	data := buf.Bytes()
	assert.Equal(t, []byte{0, 0, 0, 5, 0, 0, 0, 3}, data[:8])
	assert.Len(t, data, 8+2) // 15 bits rounds up to 2 bytes

	r := NewReader(data)
	bits, err := r.ReadUint32()
	require.NoError(t, err)
	count, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), bits)
	assert.Equal(t, uint32(3), count)

	var got []uint32
	for i := uint32(0); i < count; i++ {
		v, err := r.ReadBits(uint(bits))
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []uint32{17, 0, 31}, got)
}

func TestRoundTripAllWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for width := uint(1); width <= MaxWidth; width++ {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		values := make([]uint32, 257)
		for i := range values {
			values[i] = uint32(rng.Uint64() & mask(width))
		}
		// Always cover the extremes of the range.
		values[0] = 0
		values[1] = uint32(mask(width))

		for _, v := range values {
			require.NoError(t, w.WriteBits(v, width))
		}
		require.NoError(t, w.Flush())

		expectedBytes := (len(values)*int(width) + 7) / 8
		assert.Len(t, buf.Bytes(), expectedBytes, "width %d", width)

		r := NewReader(buf.Bytes())
		for i, want := range values {
			got, err := r.ReadBits(width)
			require.NoError(t, err, "width %d index %d", width, i)
			require.Equal(t, want, got, "width %d index %d", width, i)
		}
	}
}

func TestReadBitsUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{0xAB})

	_, err := r.ReadBits(6)
	require.NoError(t, err)

	_, err = r.ReadBits(6)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnexpectedEOF))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestReadUint32ShortStream(t *testing.T) {
	r := NewReader([]byte{0, 0, 1})
	_, err := r.ReadUint32()
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnexpectedEOF))
}

func TestInvalidWidth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	assert.True(t, errors.IsType(w.WriteBits(1, 0), errors.ErrorTypeValidation))
	assert.True(t, errors.IsType(w.WriteBits(1, 33), errors.ErrorTypeValidation))

	r := NewReader([]byte{0xFF})
	_, err := r.ReadBits(0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWriteUint32MidByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteBits(1, 3))
	assert.Error(t, w.WriteUint32(7))
}

func TestSeekMidStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	// 16 codes of 4 bits: codes 8..15 start at byte 4.
	for i := uint32(0); i < 16; i++ {
		require.NoError(t, w.WriteBits(i, 4))
	}
	require.NoError(t, w.Flush())

	r := NewReader(buf.Bytes())
	require.NoError(t, r.Seek(4))
	for want := uint32(8); want < 16; want++ {
		got, err := r.ReadBits(4)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(8), r.Offset())

	assert.Error(t, r.Seek(9))
	assert.Error(t, r.Seek(-1))
}

func TestLargeStreamDrainsBuffer(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	const n = 100000
	for i := 0; i < n; i++ {
		require.NoError(t, w.WriteBits(uint32(i%7), 3))
	}
	require.NoError(t, w.Flush())
	assert.Len(t, buf.Bytes(), (n*3+7)/8)

	r := NewReader(buf.Bytes())
	for i := 0; i < n; i++ {
		got, err := r.ReadBits(3)
		require.NoError(t, err)
		require.Equal(t, uint32(i%7), got)
	}
}
