package inno

import (
	"github.com/pcamen/innodump/internal/binio"
)

// ComponentFlags is the option bitset of a component entry. As with data
// entries, on-disk bit order is the decoder's registration order.
type ComponentFlags uint32

const (
	ComponentFixed ComponentFlags = 1 << iota
	ComponentRestart
	ComponentDisableNoUninstallWarning
	ComponentExclusive
	ComponentDontInheritCheck
)

// ComponentEntry describes one selectable install component. Components
// were introduced in 2.0.0; decoding older headers never reaches this
// record.
type ComponentEntry struct {
	Name        string
	Description string
	Types       string
	Languages   string
	Check       string

	ExtraDiskSpaceRequired uint64

	Level int32
	Used  bool

	WinVer WindowsVersionRange

	Options ComponentFlags

	Size uint64
}

// Load decodes one component entry at the reader's position.
func (e *ComponentEntry) Load(r *binio.Reader, v Version) {
	e.Name = LoadString(r, v)
	e.Description = LoadString(r, v)
	e.Types = LoadString(r, v)
	if v.AtLeast(Ver(4, 0, 1)) {
		e.Languages = LoadString(r, v)
	}
	if v.AtLeast(Ver(4, 0, 0)) {
		e.Check = LoadString(r, v)
	}

	if v.AtLeast(Ver(4, 0, 0)) {
		e.ExtraDiskSpaceRequired = r.U64()
	} else {
		e.ExtraDiskSpaceRequired = uint64(r.U32())
	}

	if v.AtLeast(Ver(4, 0, 0)) {
		e.Level = r.I32()
		e.Used = r.U8() != 0
	} else {
		e.Level = 0
		e.Used = true
	}

	e.WinVer.Load(r, v)

	flags := NewFlagReader(r, v.Bits)
	flags.Add(uint32(ComponentFixed))
	flags.Add(uint32(ComponentRestart))
	flags.Add(uint32(ComponentDisableNoUninstallWarning))
	if v.AtLeast(Ver(3, 0, 8)) {
		flags.Add(uint32(ComponentExclusive))
	}
	if v.AtLeast(Ver(4, 2, 3)) {
		flags.Add(uint32(ComponentDontInheritCheck))
	}
	e.Options = ComponentFlags(flags.Finalize())

	if v.AtLeast(Ver(4, 0, 0)) {
		e.Size = r.U64()
	} else {
		e.Size = uint64(r.U32())
	}
}
