// Package loader finds the setup payload inside an installer executable.
//
// The Inno Setup bootstrap embeds an offset table that points at the setup
// header and the compressed data stream. Older installers keep a pointer
// to the table in the executable header at 0x30; newer ones store the
// table in an RT_RCDATA resource with the well-known name 11111.
package loader

import (
	"encoding/binary"
	"hash/crc32"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/pcamen/innodump/internal/binio"
	"github.com/pcamen/innodump/internal/checksum"
	"github.com/pcamen/innodump/internal/inno"
	"github.com/pcamen/innodump/internal/pe"
)

const (
	// setupLoaderHeaderOffset is where the bootstrap keeps its pointer
	// block in old installers.
	setupLoaderHeaderOffset = 0x30

	// setupLoaderHeaderMagic is "Inno" read little-endian.
	setupLoaderHeaderMagic = 0x6F6E6E49

	// ResourceOffsetTable is the RT_RCDATA resource name newer
	// installers store the offset table under.
	ResourceOffsetTable = 11111

	// VersionBannerSize is the stored size of the setup data version
	// banner field at the start of the setup header.
	VersionBannerSize = 64
)

var (
	ErrOffsetTableNotFound = errors.New("setup loader offset table not found")
	ErrUnknownLoader       = errors.New("unknown setup loader magic")
	ErrChecksumMismatch    = errors.New("offset table checksum mismatch")
	ErrShortOffsetTable    = errors.New("unexpected end of offset table")
)

// loaderMagics maps the 12-byte offset table magic to the setup loader
// version that wrote it. The loader version gates the table layout; it is
// not the data format version, which is identified separately from the
// setup header banner.
var loaderMagics = []struct {
	magic   [12]byte
	version inno.Version
}{
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x32, 0x87, 0x65, 0x56, 0x78}, inno.Ver(1, 2, 10)},
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x34, 0x87, 0x65, 0x56, 0x78}, inno.Ver(4, 0, 0)},
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x35, 0x87, 0x65, 0x56, 0x78}, inno.Ver(4, 0, 3)},
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x36, 0x87, 0x65, 0x56, 0x78}, inno.Ver(4, 0, 10)},
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x37, 0x87, 0x65, 0x56, 0x78}, inno.Ver(4, 1, 6)},
	{[12]byte{0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0xCD, 0xE6, 0xD7, 0x7B, 0x0B, 0x2A}, inno.Ver(5, 1, 5)},
	{[12]byte{0x6E, 0x53, 0x35, 0x57, 0x37, 0x64, 0x54, 0x83, 0xAA, 0x1B, 0x0F, 0x6A}, inno.Ver(5, 1, 5)},
}

// Offsets is the decoded setup loader offset table.
type Offsets struct {
	// LoaderVersion is the setup loader revision that wrote the table.
	LoaderVersion inno.Version

	Revision uint32

	TotalSize uint32

	// ExeOffset / sizes describe the embedded uninstaller image.
	ExeOffset           uint32
	ExeCompressedSize   uint32
	ExeUncompressedSize uint32
	ExeChecksum         checksum.Checksum

	MessageOffset uint32

	// HeaderOffset is the file offset of the setup header stream.
	HeaderOffset uint32

	// DataOffset is the file offset of the compressed data stream.
	DataOffset uint32
}

// Find locates and decodes the offset table, trying the legacy header
// pointer first and falling back to the resource the modern bootstrap
// uses.
func Find(r *binio.Reader) (*Offsets, error) {
	o, err := findInHeader(r)
	if err == nil {
		return o, nil
	}
	// only fall back when there is no pointer block at all; a present but
	// corrupt table is reported as such
	if errors.Cause(err) != ErrOffsetTableNotFound {
		return nil, err
	}

	r.ClearFailure()
	res := pe.FindRCData(r, ResourceOffsetTable)
	if res.Offset == 0 {
		r.ClearFailure()
		return nil, ErrOffsetTableNotFound
	}

	o, err = loadAt(r, res.Offset)
	return o, errors.Wrap(err, "offset table resource")
}

// findInHeader follows the pointer block old bootstraps keep at 0x30: the
// "Inno" id followed by the table offset and its bitwise complement.
func findInHeader(r *binio.Reader) (*Offsets, error) {
	r.Seek(setupLoaderHeaderOffset)
	id := r.U32()
	tableOffset := r.U32()
	notTableOffset := r.U32()
	if r.Failed() {
		r.ClearFailure()
		return nil, ErrOffsetTableNotFound
	}

	if id != setupLoaderHeaderMagic {
		return nil, ErrOffsetTableNotFound
	}
	if tableOffset != ^notTableOffset {
		return nil, errors.New("corrupt setup loader header: offset complement mismatch")
	}

	o, err := loadAt(r, uint64(tableOffset))
	return o, errors.Wrap(err, "offset table at header pointer")
}

// tableReader reads offset table fields while keeping the CRC-32 of every
// checksummed byte.
type tableReader struct {
	r   *binio.Reader
	crc uint32
}

func (t *tableReader) u32(checksummed bool) uint32 {
	var buf [4]byte
	if !t.r.ReadExact(buf[:]) {
		return 0
	}
	if checksummed {
		t.crc = crc32.Update(t.crc, crc32.IEEETable, buf[:])
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func loadAt(r *binio.Reader, pos uint64) (*Offsets, error) {
	r.Seek(pos)

	var magic [12]byte
	if !r.ReadExact(magic[:]) {
		r.ClearFailure()
		return nil, ErrShortOffsetTable
	}

	o := &Offsets{}
	for _, known := range loaderMagics {
		if magic == known.magic {
			o.LoaderVersion = known.version
			break
		}
	}
	if o.LoaderVersion == (inno.Version{}) {
		return nil, ErrUnknownLoader
	}

	t := &tableReader{r: r, crc: crc32.Update(0, crc32.IEEETable, magic[:])}
	v := o.LoaderVersion

	if v.AtLeast(inno.Ver(5, 1, 5)) {
		o.Revision = t.u32(true)
		if o.Revision != 1 {
			slog.Warn("unexpected offset table revision", "revision", o.Revision)
		}
	}

	o.TotalSize = t.u32(true)
	o.ExeOffset = t.u32(true)
	if v.Before(inno.Ver(4, 1, 6)) {
		o.ExeCompressedSize = t.u32(true)
	}
	o.ExeUncompressedSize = t.u32(true)

	exeChecksum := t.u32(true)
	if v.AtLeast(inno.Ver(4, 0, 3)) {
		o.ExeChecksum = checksum.Checksum{Type: checksum.TypeCRC32, CRC32: exeChecksum}
	} else {
		o.ExeChecksum = checksum.Checksum{Type: checksum.TypeAdler32, Adler32: exeChecksum}
	}

	if v.Before(inno.Ver(4, 0, 0)) {
		o.MessageOffset = t.u32(false)
	}

	o.HeaderOffset = t.u32(true)
	o.DataOffset = t.u32(true)

	if v.AtLeast(inno.Ver(4, 0, 10)) {
		expected := t.u32(false)
		if !r.Failed() && expected != t.crc {
			return nil, errors.Wrapf(ErrChecksumMismatch,
				"got 0x%08X, expected 0x%08X", t.crc, expected)
		}
	}

	if r.Failed() {
		r.ClearFailure()
		return nil, ErrShortOffsetTable
	}

	return o, nil
}

// IdentifyVersion reads the setup data version banner at the header
// offset and resolves the data format version.
func IdentifyVersion(r *binio.Reader, o *Offsets) (inno.Version, error) {
	r.Seek(uint64(o.HeaderOffset))

	banner := make([]byte, VersionBannerSize)
	if !r.ReadExact(banner) {
		r.ClearFailure()
		return inno.Version{}, errors.New("failed to read setup data version banner")
	}

	return inno.IdentifyVersion(banner)
}
