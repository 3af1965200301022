// Package pe locates resources embedded in Portable Executable images.
//
// Only the subset of the PE format needed to walk the resource directory is
// parsed: the DOS stub pointer, the COFF header, enough of the optional
// header to find the data directories, the section table, and the
// three-level (type / name / language) resource tree. Installer payloads
// live in an RT_RCDATA resource, which is all this package is asked for.
package pe

import (
	"github.com/pcamen/innodump/internal/binio"
)

// Resource types and languages used by installer payload lookups.
const (
	TypeCursor       = 1
	TypeBitmap       = 2
	TypeIcon         = 3
	TypeMenu         = 4
	TypeDialog       = 5
	TypeString       = 6
	TypeFontDir      = 7
	TypeFont         = 8
	TypeAccelerator  = 9
	TypeData         = 10
	TypeMessageTable = 11
	TypeGroupCursor  = 12
	TypeGroupIcon    = 14
	TypeVersion      = 16

	LanguageDefault = 0
)

var peMagic = [4]byte{'P', 'E', 0, 0}

// Resource is the file location of a resource leaf. The zero value means
// "not found".
type Resource struct {
	Offset uint64
	Size   uint32
}

// header is the subset of the COFF and optional headers needed to reach the
// resource directory.
type header struct {
	// number of section records following the optional header
	nsections uint16

	// file offset of the section table
	sectionTableOffset uint32

	// virtual memory address of the resource root table
	resourceTableAddress uint32
}

// section covers one entry of the RVA space. Regions may be sparse but
// never overlap.
type section struct {
	virtualSize    uint32
	virtualAddress uint32
	rawAddress     uint32
}

// loadHeader walks the DOS stub pointer, PE magic, COFF header and optional
// header, leaving coff describing where the section table and resource
// directory live.
func loadHeader(r *binio.Reader) (coff header, ok bool) {
	// the DOS stub keeps the PE header offset at 0x3c
	r.Seek(0x3C)
	peOffset := r.U16()
	if r.Failed() {
		return coff, false
	}

	r.Seek(uint64(peOffset))
	var magic [4]byte
	if !r.ReadExact(magic[:]) || magic != peMagic {
		return coff, false
	}

	r.Skip(2) // machine
	coff.nsections = r.U16()
	r.Skip(4 + 4 + 4) // creation time + symbol table offset + symbol count
	optionalHeaderSize := r.U16()
	r.Skip(2) // characteristics

	coff.sectionTableOffset = uint32(r.Tell()) + uint32(optionalHeaderSize)

	// skip the optional header up to the data directory count; the tail
	// length depends on the PE32 / PE32+ magic
	optionalHeaderMagic := r.U16()
	if r.Failed() {
		return coff, false
	}
	if optionalHeaderMagic == 0x20B { // PE32+
		r.Skip(106)
	} else {
		r.Skip(90)
	}

	ndirectories := r.U32()
	if r.Failed() || ndirectories < 3 {
		return coff, false
	}
	const directoryHeaderSize = 4 + 4 // address + size
	r.Skip(2 * directoryHeaderSize)

	coff.resourceTableAddress = r.U32()
	resourceSize := r.U32()
	if r.Failed() || coff.resourceTableAddress == 0 || resourceSize == 0 {
		return coff, false
	}

	return coff, true
}

// loadSectionList reads the section table described by coff.
func loadSectionList(r *binio.Reader, coff header) ([]section, bool) {
	r.Seek(uint64(coff.sectionTableOffset))

	sections := make([]section, coff.nsections)
	for i := range sections {
		r.Skip(8) // name

		sections[i].virtualSize = r.U32()
		sections[i].virtualAddress = r.U32()

		r.Skip(4) // raw size
		sections[i].rawAddress = r.U32()

		// relocation addr + line number addr + relocation count
		// + line number count + characteristics
		r.Skip(4 + 4 + 2 + 2 + 4)
	}

	return sections, !r.Failed()
}

// toFileOffset translates a virtual memory address to a file offset using
// the section list. Returns 0 if no section covers the address.
func toFileOffset(sections []section, address uint32) uint32 {
	for _, s := range sections {
		if address >= s.virtualAddress && address < s.virtualAddress+s.virtualSize {
			return address + s.rawAddress - s.virtualAddress
		}
	}
	return 0
}

// findResourceEntry scans the resource table the reader is positioned at
// for an id entry matching needle. The returned value keeps the on-disk
// encoding: the high bit distinguishes sub-directory from leaf, the low 31
// bits are an offset relative to the resource root. Returns 0 if absent.
func findResourceEntry(r *binio.Reader, needle uint32) uint32 {
	// skip characteristics + timestamp + major version + minor version
	r.Skip(4 + 4 + 2 + 2)

	namedCount := r.U16()
	idCount := r.U16()

	// named entries are sorted first; installer resources only ever use
	// numeric ids
	const entrySize = 4 + 4 // id / string address + offset
	if !r.Skip(int64(namedCount) * entrySize) {
		return 0
	}

	for i := 0; i < int(idCount); i++ {
		id := r.U32()
		offset := r.U32()
		if r.Failed() {
			return 0
		}
		if id == needle {
			return offset
		}
	}

	return 0
}

// resolveEntry strips the sub-directory bit and rebases the offset onto the
// resource root's file offset.
func resolveEntry(entry, resourceOffset uint32) (offset uint32, isTable bool) {
	isTable = entry&(1<<31) != 0
	offset = entry&^(1<<31) + resourceOffset
	return offset, isTable
}

// FindResource looks up the resource identified by (typ, name, language) in
// the PE image the reader is positioned over and returns its file location.
// A zero Resource means the image is not a PE, carries no resource table,
// or has no matching entry; no distinction is made, since callers probe.
func FindResource(r *binio.Reader, name, typ, language uint32) Resource {
	r.Seek(0)

	var result Resource

	coff, ok := loadHeader(r)
	if !ok {
		return result
	}

	sections, ok := loadSectionList(r, coff)
	if !ok {
		return result
	}

	resourceOffset := toFileOffset(sections, coff.resourceTableAddress)
	if resourceOffset == 0 {
		return result
	}

	r.Seek(uint64(resourceOffset))
	typeOffset, isTable := resolveEntry(findResourceEntry(r, typ), resourceOffset)
	if !isTable {
		return result
	}

	r.Seek(uint64(typeOffset))
	nameOffset, isTable := resolveEntry(findResourceEntry(r, name), resourceOffset)
	if !isTable {
		return result
	}

	r.Seek(uint64(nameOffset))
	leafEntry := findResourceEntry(r, language)
	leafOffset, isTable := resolveEntry(leafEntry, resourceOffset)
	if leafEntry == 0 || isTable {
		return result
	}

	// leaf record: data address + size, codepage and reserved word ignored
	r.Seek(uint64(leafOffset))
	dataAddress := r.U32()
	dataSize := r.U32()
	if r.Failed() {
		return result
	}

	dataOffset := toFileOffset(sections, dataAddress)
	if dataOffset == 0 {
		return result
	}

	result.Offset = uint64(dataOffset)
	result.Size = dataSize

	return result
}

// FindRCData looks up an RT_RCDATA resource by name with the default
// language, the form installer payload lookups take.
func FindRCData(r *binio.Reader, name uint32) Resource {
	return FindResource(r, name, TypeData, LanguageDefault)
}
