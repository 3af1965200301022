package inno_test

import (
	"bytes"
	"encoding/binary"

	"github.com/pcamen/innodump/internal/binio"
)

// stream builds synthetic setup header byte sequences for decoder tests.
type stream struct {
	buf bytes.Buffer
}

func (s *stream) u8(v uint8)   { s.buf.WriteByte(v) }
func (s *stream) u16(v uint16) { binary.Write(&s.buf, binary.LittleEndian, v) }
func (s *stream) u32(v uint32) { binary.Write(&s.buf, binary.LittleEndian, v) }
func (s *stream) u64(v uint64) { binary.Write(&s.buf, binary.LittleEndian, v) }
func (s *stream) i64(v int64)  { binary.Write(&s.buf, binary.LittleEndian, v) }

func (s *stream) raw(b []byte) { s.buf.Write(b) }

// varint writes v at the width the installer's bit width stores.
func (s *stream) varint(bits int, v uint32) {
	if bits == 16 {
		s.u16(uint16(v))
	} else {
		s.u32(v)
	}
}

// str writes a length-prefixed single-byte-encoded string.
func (s *stream) str(v string) {
	s.u32(uint32(len(v)))
	s.buf.WriteString(v)
}

func (s *stream) reader() *binio.Reader {
	return binio.NewReader(bytes.NewReader(s.buf.Bytes()))
}
