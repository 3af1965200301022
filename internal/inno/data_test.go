package inno_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcamen/innodump/internal/checksum"
	"github.com/pcamen/innodump/internal/inno"
)

const filetime2000 = int64(0x01BF53EB256D4000) // 2000-01-01T00:00:00Z

func v32(major, minor uint8, patch uint16) inno.Version {
	v := inno.Ver(major, minor, patch)
	v.Bits = 32
	return v
}

func TestDataEntryPre400(t *testing.T) {
	var s stream
	s.u32(1) // first slice, stored 1-based
	s.u32(2) // last slice
	s.u32(0x1000)
	s.u32(0x1234) // file size, 32-bit wide
	s.u32(0x999)  // chunk size
	s.u32(0xAABBCCDD)
	s.i64(filetime2000)
	s.u32(1)
	s.u32(2)
	s.u8(0) // flags: VersionInfoValid, VersionInfoNotValid, BZipped

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(3, 0, 0))
	require.False(t, r.Failed())

	assert.Equal(t, uint32(0), e.Chunk.FirstSlice)
	assert.Equal(t, uint32(1), e.Chunk.LastSlice)
	assert.Equal(t, uint32(0x1000), e.Chunk.Offset)
	assert.Equal(t, uint64(0), e.File.Offset)
	assert.Equal(t, uint64(0x1234), e.File.Size)
	assert.Equal(t, uint64(0x999), e.Chunk.Size)
	assert.Equal(t, checksum.TypeAdler32, e.File.Checksum.Type)
	assert.Equal(t, uint32(0xAABBCCDD), e.File.Checksum.Adler32)
	assert.Equal(t, int64(946684800), e.Timestamp)
	assert.Equal(t, uint32(0), e.TimestampNsec)
	assert.Equal(t, uint64(1)<<32|2, e.FileVersion)

	// versions without the ChunkCompressed flag force it on
	assert.NotZero(t, e.Options&inno.ChunkCompressed)
	assert.Equal(t, inno.UnknownCompression, e.Chunk.Compression)
	assert.False(t, e.Chunk.Encrypted)
	assert.Equal(t, inno.NoFilter, e.File.Filter)
}

func TestDataEntrySliceWarningKeepsValue(t *testing.T) {
	// a 0-based-looking slice number before 4.0.0 is warned about but
	// deliberately not decremented
	var s stream
	s.u32(0)
	s.u32(2)
	s.u32(0)
	s.u32(0)
	s.u32(0)
	s.u32(0)
	s.i64(filetime2000)
	s.u32(0)
	s.u32(0)
	s.u8(0)

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(3, 0, 0))
	require.False(t, r.Failed())

	assert.Equal(t, uint32(0), e.Chunk.FirstSlice)
	assert.Equal(t, uint32(2), e.Chunk.LastSlice)
}

func TestDataEntryBZipped(t *testing.T) {
	var s stream
	s.u32(1)
	s.u32(1)
	s.u32(0)
	s.u32(0)
	s.u32(0)
	s.u32(0)
	s.i64(filetime2000)
	s.u32(0)
	s.u32(0)
	s.u8(0x04) // bit 2: BZipped

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(3, 0, 0))
	require.False(t, r.Failed())

	assert.NotZero(t, e.Options&inno.BZipped)
	assert.NotZero(t, e.Options&inno.ChunkCompressed)
	assert.Equal(t, inno.BZip2, e.Chunk.Compression)
}

func TestDataEntry400Widths(t *testing.T) {
	// at 4.0.0 the sizes widen to 64 bits, but the file offset and CRC-32
	// only arrive at 4.0.1
	var s stream
	s.u32(5)
	s.u32(5)
	s.u32(0x2000)
	s.u64(0x1_0000_0000) // file size, 64-bit wide
	s.u64(0x2_0000_0001) // chunk size
	s.u32(0x01020304)    // still Adler-32
	s.i64(filetime2000)
	s.u32(0)
	s.u32(0)
	s.u8(0) // flags: VersionInfoValid, VersionInfoNotValid, BZipped

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(4, 0, 0))
	require.False(t, r.Failed())

	assert.Equal(t, uint32(5), e.Chunk.FirstSlice, "no 1-based correction at 4.0.0")
	assert.Equal(t, uint64(0), e.File.Offset)
	assert.Equal(t, uint64(0x1_0000_0000), e.File.Size)
	assert.Equal(t, uint64(0x2_0000_0001), e.Chunk.Size)
	assert.Equal(t, checksum.TypeAdler32, e.File.Checksum.Type)
}

func TestDataEntry401FileOffset(t *testing.T) {
	var s stream
	s.u32(5)
	s.u32(5)
	s.u32(0x2000)
	s.u64(0xDEAD) // file offset appears at 4.0.1
	s.u64(100)
	s.u64(50)
	s.u32(0xCAFEBABE) // CRC-32 from 4.0.1
	s.i64(filetime2000)
	s.u32(0)
	s.u32(0)
	s.u8(0)

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(4, 0, 1))
	require.False(t, r.Failed())

	assert.Equal(t, uint64(0xDEAD), e.File.Offset)
	assert.Equal(t, checksum.TypeCRC32, e.File.Checksum.Type)
	assert.Equal(t, uint32(0xCAFEBABE), e.File.Checksum.CRC32)
}

func TestDataEntryChecksumSelection(t *testing.T) {
	md5 := make([]byte, 16)
	sha1 := make([]byte, 20)
	for i := range md5 {
		md5[i] = byte(i + 1)
	}
	for i := range sha1 {
		sha1[i] = byte(0xA0 + i)
	}

	tests := []struct {
		name      string
		version   inno.Version
		digest    []byte
		flagBytes []byte
		want      checksum.Type
	}{
		{"adler32 at 3.0.0", v32(3, 0, 0), []byte{1, 2, 3, 4}, []byte{0}, checksum.TypeAdler32},
		{"crc32 at 4.0.1", v32(4, 0, 1), []byte{1, 2, 3, 4}, []byte{0}, checksum.TypeCRC32},
		{"md5 at 4.2.0", v32(4, 2, 0), md5, []byte{0}, checksum.TypeMD5},
		{"sha1 at 5.3.9", v32(5, 3, 9), sha1, []byte{0, 0}, checksum.TypeSHA1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s stream
			s.u32(1)
			s.u32(1)
			s.u32(0)
			if tt.version.AtLeast(inno.Ver(4, 0, 1)) {
				s.u64(0)
			}
			if tt.version.AtLeast(inno.Ver(4, 0, 0)) {
				s.u64(0)
				s.u64(0)
			} else {
				s.u32(0)
				s.u32(0)
			}
			s.raw(tt.digest)
			s.i64(filetime2000)
			s.u32(0)
			s.u32(0)
			s.raw(tt.flagBytes)

			r := s.reader()
			var e inno.DataEntry
			e.Load(r, tt.version)
			require.False(t, r.Failed())

			assert.Equal(t, tt.want, e.File.Checksum.Type)
			switch tt.want {
			case checksum.TypeMD5:
				assert.Equal(t, md5, e.File.Checksum.MD5[:])
			case checksum.TypeSHA1:
				assert.Equal(t, sha1, e.File.Checksum.SHA1[:])
			}
		})
	}
}

func TestDataEntryFilterSelection(t *testing.T) {
	tests := []struct {
		name      string
		version   inno.Version
		digest    []byte
		flagBytes []byte // CallInstructionOptimized is always bit 4
		want      inno.Filter
	}{
		{"4108 at 5.1.0", v32(5, 1, 0), make([]byte, 16), []byte{0x10}, inno.InstructionFilter4108},
		{"5200 at 5.2.0", v32(5, 2, 0), make([]byte, 16), []byte{0x10, 0}, inno.InstructionFilter5200},
		{"5309 at 5.3.9", v32(5, 3, 9), make([]byte, 20), []byte{0x10, 0}, inno.InstructionFilter5309},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s stream
			s.u32(1)
			s.u32(1)
			s.u32(0)
			s.u64(0)
			s.u64(0)
			s.u64(0)
			s.raw(tt.digest)
			s.i64(filetime2000)
			s.u32(0)
			s.u32(0)
			s.raw(tt.flagBytes)

			r := s.reader()
			var e inno.DataEntry
			e.Load(r, tt.version)
			require.False(t, r.Failed())

			assert.NotZero(t, e.Options&inno.CallInstructionOptimized)
			assert.Equal(t, tt.want, e.File.Filter)
		})
	}
}

func TestDataEntryEncrypted(t *testing.T) {
	// 5.3.9 catalog: ChunkEncrypted is bit 6, ChunkCompressed bit 7
	var s stream
	s.u32(1)
	s.u32(1)
	s.u32(0)
	s.u64(0)
	s.u64(0)
	s.u64(0)
	s.raw(make([]byte, 20))
	s.i64(filetime2000)
	s.u32(0)
	s.u32(0)
	s.u8(0x40)
	s.u8(0)

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(5, 3, 9))
	require.False(t, r.Failed())

	assert.True(t, e.Chunk.Encrypted)
	// ChunkCompressed clear and readable from 4.2.5 on: stored chunk
	assert.Equal(t, inno.Stored, e.Chunk.Compression)
}

func TestDataEntry16Bit(t *testing.T) {
	v := inno.Version{Major: 1, Minor: 2, Patch: 10, Bits: 16}

	var s stream
	s.u16(1) // slice indices stored at 16-bit width
	s.u16(1)
	s.u32(0x40)
	s.u32(10)
	s.u32(20)
	s.u32(0x11223344)
	s.u16(0x6000) // FAT time 12:00:00
	s.u16(0x2821) // FAT date 2000-01-01
	s.u32(0)
	s.u32(0)
	s.u16(0) // two flags still consume a whole 16-bit word

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v)
	require.False(t, r.Failed())

	assert.Equal(t, uint32(0), e.Chunk.FirstSlice)
	assert.Equal(t, uint64(10), e.File.Size)
	assert.Equal(t, checksum.TypeAdler32, e.File.Checksum.Type)
	assert.Equal(t, int64(946728000), e.Timestamp)
	assert.Equal(t, uint32(0), e.TimestampNsec)

	// nothing left over: the flag word was fully consumed
	assert.Equal(t, uint8(0), r.U8())
	assert.True(t, r.Failed())
}

func TestDataEntryShortStream(t *testing.T) {
	var s stream
	s.u32(1)
	s.u32(1)

	r := s.reader()
	var e inno.DataEntry
	e.Load(r, v32(5, 3, 9))
	assert.True(t, r.Failed())
}
