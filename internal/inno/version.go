// Package inno decodes the version-dependent setup records embedded in
// Inno Setup installers.
//
// Record layouts changed continuously over two decades of releases: field
// widths, flag positions, checksum algorithms and timestamp encodings all
// depend on the format version, so every decoder takes a Version and gates
// individual fields on it.
package inno

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version identifies an Inno Setup data format revision. Ordering is
// lexicographic on (Major, Minor, Patch); Bits and Unicode qualify the
// on-disk encoding but do not participate in ordering.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint16

	// Bits is 16 for legacy 16-bit installers, 32 otherwise. It selects
	// the stored width of several fields.
	Bits int

	// Unicode selects UTF-16LE string encoding.
	Unicode bool
}

// Ver builds a comparison literal. Bits and Unicode are left at their zero
// values; comparisons ignore them.
func Ver(major, minor uint8, patch uint16) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

func (v Version) key() uint32 {
	return uint32(v.Major)<<24 | uint32(v.Minor)<<16 | uint32(v.Patch)
}

// AtLeast reports whether v is o or newer.
func (v Version) AtLeast(o Version) bool {
	return v.key() >= o.key()
}

// Before reports whether v is older than o.
func (v Version) Before(o Version) bool {
	return v.key() < o.key()
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Unicode {
		s += " (unicode)"
	}
	return s
}

// legacy version markers used by the oldest installers instead of a banner
const (
	legacyVersion16 = "i1.2.10--16\x1a"
	legacyVersion32 = "i1.2.10--32\x1a"
)

// bannerPattern matches the version string that prefixes the setup header,
// e.g. "Inno Setup Setup Data (5.5.7) (u)". Some repackers emit "}" for
// ")" and vary the case of the unicode marker.
var bannerPattern = regexp.MustCompile(
	`Inno Setup Setup Data \((\d+)\.(\d+)\.(\d+)[)}](?: [({][uU][)}])?`)

// IdentifyVersion parses the version string found at the start of the
// setup header. banner holds the raw bytes of the string field; only the
// prefix up to the match is examined.
func IdentifyVersion(banner []byte) (Version, error) {
	if len(banner) >= len(legacyVersion16) {
		switch string(banner[:len(legacyVersion16)]) {
		case legacyVersion16:
			return Version{Major: 1, Minor: 2, Patch: 10, Bits: 16}, nil
		case legacyVersion32:
			return Version{Major: 1, Minor: 2, Patch: 10, Bits: 32}, nil
		}
	}

	m := bannerPattern.FindSubmatch(banner)
	if m == nil {
		return Version{}, fmt.Errorf("unknown setup data version banner %q", banner)
	}

	major, _ := strconv.ParseUint(string(m[1]), 10, 8)
	minor, _ := strconv.ParseUint(string(m[2]), 10, 8)
	patch, _ := strconv.ParseUint(string(m[3]), 10, 16)

	v := Version{
		Major: uint8(major),
		Minor: uint8(minor),
		Patch: uint16(patch),
		Bits:  32,
	}

	// the unicode marker trails the version number
	full := m[0]
	v.Unicode = full[len(full)-2] == 'u' || full[len(full)-2] == 'U'

	return v, nil
}
