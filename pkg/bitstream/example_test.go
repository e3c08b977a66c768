package bitstream_test

import (
	"bytes"
	"fmt"

	"github.com/ajitpratap0/strata/pkg/bitstream"
)

// Example packs three 3-bit codes behind a one-integer header.
func Example() {
	var buf bytes.Buffer
	w := bitstream.NewWriter(&buf)

	_ = w.WriteUint32(3)
	for _, code := range []uint32{5, 2, 7} {
		_ = w.WriteBits(code, 3)
	}
	_ = w.Flush()

	for _, b := range buf.Bytes()[4:] {
		fmt.Printf("%08b\n", b)
	}

	r := bitstream.NewReader(buf.Bytes())
	width, _ := r.ReadUint32()
	for i := 0; i < 3; i++ {
		v, _ := r.ReadBits(uint(width))
		fmt.Println(v)
	}

	// Output:
	// 10101011
	// 10000000
	// 5
	// 2
	// 7
}
