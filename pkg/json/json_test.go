package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	Town     string   `json:"town"`
	MinPrice *float64 `json:"min_price"`
}

func TestWriteKeepsNullAggregates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, result{Town: "KALLANG/WHAMPOA"}, false))
	assert.Equal(t, `{"town":"KALLANG/WHAMPOA","min_price":null}`+"\n", buf.String())

	buf.Reset()
	p := 300000.0
	require.NoError(t, Write(&buf, result{Town: "BEDOK", MinPrice: &p}, true))
	assert.Equal(t, "{\n  \"town\": \"BEDOK\",\n  \"min_price\": 300000\n}\n", buf.String())
}

func TestUnmarshalNull(t *testing.T) {
	var back result
	require.NoError(t, Unmarshal([]byte(`{"town":"C","min_price":null}`), &back))
	assert.Equal(t, "C", back.Town)
	assert.Nil(t, back.MinPrice)
}
