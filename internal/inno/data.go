package inno

import (
	"log/slog"

	"github.com/pcamen/innodump/internal/binio"
	"github.com/pcamen/innodump/internal/checksum"
	"github.com/pcamen/innodump/internal/timeutil"
)

// Compression identifies how a chunk's payload is compressed.
type Compression int

const (
	Stored Compression = iota
	BZip2
	UnknownCompression
)

func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case BZip2:
		return "bzip2"
	default:
		return "unknown"
	}
}

// Filter identifies the x86 call-instruction transform applied to a file
// before compression. The variants differ in how relative call targets are
// encoded and must match the producing compiler version.
type Filter int

const (
	NoFilter Filter = iota
	InstructionFilter4108
	InstructionFilter5200
	InstructionFilter5309
)

// DataEntryFlags is the option bitset of a data entry. Declaration order
// here is not the on-disk bit order; the decoder registers flags with a
// FlagReader in the order the version stores them.
type DataEntryFlags uint32

const (
	VersionInfoValid DataEntryFlags = 1 << iota
	VersionInfoNotValid
	BZipped
	TimeStampInUTC
	IsUninstallerExe
	CallInstructionOptimized
	Touch
	ChunkEncrypted
	ChunkCompressed
	SolidBreak
)

// Chunk locates a file's bytes inside the compressed data stream.
type Chunk struct {
	// FirstSlice and LastSlice are 0-based slice indices. Versions before
	// 4.0.0 store them 1-based and Load decrements both, except when either
	// stored value is 0: then Load logs a warning and keeps both as stored.
	FirstSlice uint32
	LastSlice  uint32

	// Offset is the byte offset of the chunk within the slice.
	Offset uint32

	// Size is the compressed size of the chunk.
	Size uint64

	Compression Compression
	Encrypted   bool
}

// FileLocation describes the decompressed file a data entry yields.
type FileLocation struct {
	// Offset is the byte offset of this file within the decompressed
	// chunk. Always 0 before 4.0.1.
	Offset uint64

	// Size is the decompressed size.
	Size uint64

	Checksum checksum.Checksum
	Filter   Filter
}

// DataEntry is one file location record of the setup header.
type DataEntry struct {
	Chunk Chunk
	File  FileLocation

	// Timestamp is the stored modification time as a Unix epoch with
	// separate nanoseconds.
	Timestamp     int64
	TimestampNsec uint32

	// FileVersion packs the VS_FIXEDFILEINFO version words as
	// (ms << 32) | ls.
	FileVersion uint64

	Options DataEntryFlags
}

// Load decodes one data entry at the reader's position. On a read failure
// the entry keeps a valid shape but undefined values; callers check the
// reader's failure flag after decoding a batch.
func (e *DataEntry) Load(r *binio.Reader, v Version) {
	e.Chunk.FirstSlice = r.Varint(v.Bits)
	e.Chunk.LastSlice = r.Varint(v.Bits)
	if v.Before(Ver(4, 0, 0)) {
		if e.Chunk.FirstSlice < 1 || e.Chunk.LastSlice < 1 {
			slog.Warn("unexpected slice number",
				"first", e.Chunk.FirstSlice,
				"last", e.Chunk.LastSlice,
			)
		} else {
			// stored 1-based before 4.0.0
			e.Chunk.FirstSlice--
			e.Chunk.LastSlice--
		}
	}

	e.Chunk.Offset = r.U32()

	if v.AtLeast(Ver(4, 0, 1)) {
		e.File.Offset = r.U64()
	} else {
		e.File.Offset = 0
	}

	if v.AtLeast(Ver(4, 0, 0)) {
		e.File.Size = r.U64()
		e.Chunk.Size = r.U64()
	} else {
		e.File.Size = uint64(r.U32())
		e.Chunk.Size = uint64(r.U32())
	}

	switch {
	case v.AtLeast(Ver(5, 3, 9)):
		r.ReadExact(e.File.Checksum.SHA1[:])
		e.File.Checksum.Type = checksum.TypeSHA1
	case v.AtLeast(Ver(4, 2, 0)):
		r.ReadExact(e.File.Checksum.MD5[:])
		e.File.Checksum.Type = checksum.TypeMD5
	case v.AtLeast(Ver(4, 0, 1)):
		e.File.Checksum.CRC32 = r.U32()
		e.File.Checksum.Type = checksum.TypeCRC32
	default:
		e.File.Checksum.Adler32 = r.U32()
		e.File.Checksum.Type = checksum.TypeAdler32
	}

	if v.Bits == 16 {
		// 16-bit installers use the FAT date/time format
		timeWord := r.U16()
		dateWord := r.U16()
		e.Timestamp = timeutil.ParseFATTime(timeWord, dateWord)
		e.TimestampNsec = 0
	} else {
		// 32-bit installers use the Win32 FILETIME format
		e.Timestamp, e.TimestampNsec = timeutil.ParseFiletime(r.I64())
	}

	fileVersionMS := r.U32()
	fileVersionLS := r.U32()
	e.FileVersion = uint64(fileVersionMS)<<32 | uint64(fileVersionLS)

	e.Options = 0

	flags := NewFlagReader(r, v.Bits)
	flags.Add(uint32(VersionInfoValid))
	flags.Add(uint32(VersionInfoNotValid))
	if v.AtLeast(Ver(2, 0, 17)) && v.Before(Ver(4, 0, 1)) {
		flags.Add(uint32(BZipped))
	}
	if v.AtLeast(Ver(4, 0, 10)) {
		flags.Add(uint32(TimeStampInUTC))
	}
	if v.AtLeast(Ver(4, 1, 0)) {
		flags.Add(uint32(IsUninstallerExe))
	}
	if v.AtLeast(Ver(4, 1, 8)) {
		flags.Add(uint32(CallInstructionOptimized))
	}
	if v.AtLeast(Ver(4, 2, 0)) {
		flags.Add(uint32(Touch))
	}
	if v.AtLeast(Ver(4, 2, 2)) {
		flags.Add(uint32(ChunkEncrypted))
	}
	if v.AtLeast(Ver(4, 2, 5)) {
		flags.Add(uint32(ChunkCompressed))
	} else {
		e.Options |= ChunkCompressed
	}
	if v.AtLeast(Ver(5, 1, 13)) {
		flags.Add(uint32(SolidBreak))
	}
	e.Options |= DataEntryFlags(flags.Finalize())

	if e.Options&ChunkCompressed != 0 {
		e.Chunk.Compression = UnknownCompression
	} else {
		e.Chunk.Compression = Stored
	}
	if e.Options&BZipped != 0 {
		e.Options |= ChunkCompressed
		e.Chunk.Compression = BZip2
	}

	e.Chunk.Encrypted = e.Options&ChunkEncrypted != 0

	if e.Options&CallInstructionOptimized != 0 {
		switch {
		case v.Before(Ver(5, 2, 0)):
			e.File.Filter = InstructionFilter4108
		case v.Before(Ver(5, 3, 9)):
			e.File.Filter = InstructionFilter5200
		default:
			e.File.Filter = InstructionFilter5309
		}
	} else {
		e.File.Filter = NoFilter
	}
}
