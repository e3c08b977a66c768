// Package json wraps goccy/go-json for strata's report output.
package json

import (
	"io"

	gojson "github.com/goccy/go-json"
)

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// Write encodes v to w followed by a newline, indented when pretty is set.
func Write(w io.Writer, v interface{}, pretty bool) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
