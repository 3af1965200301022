package inno

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/pcamen/innodump/internal/binio"
)

var (
	utf16Decoder   = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	win1252Decoder = charmap.Windows1252
)

// LoadRawString reads a length-prefixed string field without decoding: a
// uint32 byte count followed by that many raw bytes. Returns nil after a
// read failure.
func LoadRawString(r *binio.Reader) []byte {
	length := r.U32()
	if r.Failed() || length == 0 {
		return nil
	}
	buf := make([]byte, length)
	if !r.ReadExact(buf) {
		return nil
	}
	return buf
}

// LoadString reads a string field and decodes it for the given version:
// unicode installers store UTF-16LE, everything else Windows-1252.
func LoadString(r *binio.Reader, v Version) string {
	raw := LoadRawString(r)
	if len(raw) == 0 {
		return ""
	}

	if v.Unicode {
		decoded, err := utf16Decoder.NewDecoder().Bytes(raw)
		if err != nil {
			return string(raw)
		}
		return string(decoded)
	}

	decoded, err := win1252Decoder.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
