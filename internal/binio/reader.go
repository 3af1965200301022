package binio

import (
	"encoding/binary"
	"io"
)

// Reader reads little-endian primitives from a seekable byte source.
//
// Unlike error-returning readers, Reader keeps a sticky failure flag: the
// first short read, I/O error or bad seek latches the flag, and every
// subsequent read returns zero. Decoders check Failed at strategic points
// instead of after every field, which keeps record decoding linear.
type Reader struct {
	src    io.ReadSeeker
	failed bool
}

// NewReader wraps src in a positioned reader. The cursor starts wherever
// src currently points.
func NewReader(src io.ReadSeeker) *Reader {
	return &Reader{src: src}
}

// Failed reports whether any previous operation failed.
func (r *Reader) Failed() bool {
	return r.failed
}

// ClearFailure resets the sticky failure flag. The cursor position after a
// failed operation is unspecified; callers should Seek before reading again.
func (r *Reader) ClearFailure() {
	r.failed = false
}

// Seek moves the cursor to an absolute offset from the start of the source.
func (r *Reader) Seek(pos uint64) bool {
	if r.failed {
		return false
	}
	if _, err := r.src.Seek(int64(pos), io.SeekStart); err != nil {
		r.failed = true
	}
	return !r.failed
}

// Skip moves the cursor delta bytes relative to the current position.
func (r *Reader) Skip(delta int64) bool {
	if r.failed {
		return false
	}
	if _, err := r.src.Seek(delta, io.SeekCurrent); err != nil {
		r.failed = true
	}
	return !r.failed
}

// Tell returns the current cursor position, or 0 after a failure.
func (r *Reader) Tell() uint64 {
	if r.failed {
		return 0
	}
	pos, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		r.failed = true
		return 0
	}
	return uint64(pos)
}

// ReadExact fills buf completely or fails.
func (r *Reader) ReadExact(buf []byte) bool {
	if r.failed {
		return false
	}
	if _, err := io.ReadFull(r.src, buf); err != nil {
		r.failed = true
	}
	return !r.failed
}

func (r *Reader) read(buf []byte) bool {
	return r.ReadExact(buf)
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	var buf [1]byte
	if !r.read(buf[:]) {
		return 0
	}
	return buf[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	var buf [2]byte
	if !r.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint16(buf[:])
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	var buf [4]byte
	if !r.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	var buf [8]byte
	if !r.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// I16 reads a little-endian int16.
func (r *Reader) I16() int16 {
	return int16(r.U16())
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// I64 reads a little-endian int64.
func (r *Reader) I64() int64 {
	return int64(r.U64())
}

// Varint reads an integer whose stored width depends on the installer's bit
// width: 16-bit installers store a uint16 (zero-extended here), 32-bit
// installers a uint32.
func (r *Reader) Varint(bits int) uint32 {
	if bits == 16 {
		return uint32(r.U16())
	}
	return r.U32()
}
