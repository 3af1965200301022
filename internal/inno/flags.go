package inno

import (
	"github.com/pcamen/innodump/internal/binio"
)

// FlagReader decodes a bit-packed flag set whose membership depends on the
// format version.
//
// Each decoder registers the flags its version stores, in on-disk order;
// bit positions are defined by registration order at decode time, not by
// the order the flag constants are declared in. Finalize then consumes the
// packed bits from the stream: 32-bit installers store ceil(n/8) bytes,
// 16-bit installers pad the same bit stream to whole 16-bit words.
type FlagReader struct {
	r     *binio.Reader
	bits  int
	flags []uint32
}

// NewFlagReader prepares a flag accumulator reading from r with the
// installer's bit width.
func NewFlagReader(r *binio.Reader, bits int) *FlagReader {
	return &FlagReader{r: r, bits: bits}
}

// Add appends flag to the ordered catalog.
func (f *FlagReader) Add(flag uint32) {
	f.flags = append(f.flags, flag)
}

// Finalize consumes the packed bits and returns the union of the
// registered flags whose bits are set. Unregistered padding bits are
// consumed but ignored.
func (f *FlagReader) Finalize() uint32 {
	n := len(f.flags)

	var packed []byte
	if f.bits == 16 {
		words := (n + 15) / 16
		packed = make([]byte, 2*words)
	} else {
		packed = make([]byte, (n+7)/8)
	}
	if !f.r.ReadExact(packed) {
		return 0
	}

	var result uint32
	for i, flag := range f.flags {
		if packed[i/8]&(1<<(i%8)) != 0 {
			result |= flag
		}
	}
	return result
}
