package inno

import (
	"log/slog"

	"github.com/pcamen/innodump/internal/binio"
)

// StoredEnum maps a compact on-disk ordinal to a symbolic value. Decoders
// register the values a version stores, in ordinal order, then Read
// consumes one byte and translates it. Ordinals outside the registered
// range decode to the first value with a warning.
type StoredEnum struct {
	values []int
}

// Add registers the value for the next ordinal.
func (e *StoredEnum) Add(value int) {
	e.values = append(e.values, value)
}

// Read consumes the stored ordinal and returns the mapped value.
func (e *StoredEnum) Read(r *binio.Reader) int {
	ordinal := int(r.U8())
	if ordinal >= len(e.values) {
		if !r.Failed() {
			slog.Warn("unexpected enum ordinal", "ordinal", ordinal, "max", len(e.values)-1)
		}
		if len(e.values) == 0 {
			return 0
		}
		return e.values[0]
	}
	return e.values[ordinal]
}
