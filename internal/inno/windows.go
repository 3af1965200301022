package inno

import (
	"github.com/pcamen/innodump/internal/binio"
)

// WindowsVersionData is one packed Windows version number. The build field
// only exists from 1.3.19 on.
type WindowsVersionData struct {
	Build uint16
	Minor uint8
	Major uint8
}

func (d *WindowsVersionData) load(r *binio.Reader, v Version) {
	if v.AtLeast(Ver(1, 3, 19)) {
		d.Build = r.U16()
	}
	d.Minor = r.U8()
	d.Major = r.U8()
}

// WindowsVersion is a Windows / NT version pair with an optional NT
// service pack word.
type WindowsVersion struct {
	Win WindowsVersionData
	NT  WindowsVersionData

	NTServicePack struct {
		Minor uint8
		Major uint8
	}
}

func (w *WindowsVersion) load(r *binio.Reader, v Version) {
	w.Win.load(r, v)
	w.NT.load(r, v)
	if v.AtLeast(Ver(1, 3, 19)) {
		w.NTServicePack.Minor = r.U8()
		w.NTServicePack.Major = r.U8()
	}
}

// WindowsVersionRange bounds the Windows versions an entry applies to.
type WindowsVersionRange struct {
	// Begin is the minimum version the entry requires.
	Begin WindowsVersion

	// End is the version the entry stops applying at; all zero means
	// unbounded.
	End WindowsVersion
}

// Load reads the version range in its stored order.
func (w *WindowsVersionRange) Load(r *binio.Reader, v Version) {
	w.Begin.load(r, v)
	w.End.load(r, v)
}
