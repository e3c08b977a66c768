package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProbe(t *testing.T) {
	p, err := NewMemoryProbe()
	require.NoError(t, err)

	before := p.Sample()
	buf := make([][]byte, 64)
	for i := range buf {
		buf[i] = make([]byte, 1<<16)
	}
	after := p.Sample()

	assert.Positive(t, after.HeapAlloc)
	assert.Positive(t, after.Goroutines)
	assert.False(t, after.Time.Before(before.Time))
	assert.GreaterOrEqual(t, after.SystemMemoryPercent, 0.0)
	assert.Len(t, buf, 64)
}

func TestRSSDelta(t *testing.T) {
	assert.Equal(t, int64(100), RSSDelta(MemorySample{RSS: 200}, MemorySample{RSS: 300}))
	assert.Equal(t, int64(-50), RSSDelta(MemorySample{RSS: 300}, MemorySample{RSS: 250}))
}
