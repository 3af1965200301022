package inno

import (
	"github.com/pcamen/innodump/internal/binio"
)

// DeleteTargetType says what a deletion record removes.
type DeleteTargetType int

const (
	DeleteFiles DeleteTargetType = iota
	DeleteFilesAndSubdirs
	DeleteDirIfEmpty
)

func (t DeleteTargetType) String() string {
	switch t {
	case DeleteFiles:
		return "files"
	case DeleteFilesAndSubdirs:
		return "files and subdirs"
	case DeleteDirIfEmpty:
		return "dir if empty"
	default:
		return "unknown"
	}
}

// DeleteEntry is one install-time or uninstall-time deletion record.
type DeleteEntry struct {
	Name string

	Condition Condition
	WinVer    WindowsVersionRange

	Type DeleteTargetType
}

// Load decodes one deletion entry at the reader's position.
func (e *DeleteEntry) Load(r *binio.Reader, v Version) {
	e.Name = LoadString(r, v)
	e.Condition.load(r, v)
	e.WinVer.Load(r, v)

	var targetType StoredEnum
	targetType.Add(int(DeleteFiles))
	targetType.Add(int(DeleteFilesAndSubdirs))
	targetType.Add(int(DeleteDirIfEmpty))
	e.Type = DeleteTargetType(targetType.Read(r))
}
