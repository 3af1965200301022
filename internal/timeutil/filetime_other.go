//go:build !unix

package timeutil

import (
	"os"
	"time"
)

// SetFileTime sets path's access and modification time to the given epoch
// at the best precision os.Chtimes provides. Returns false on error.
func SetFileTime(path string, epoch int64, nsec uint32) bool {
	t := time.Unix(epoch, int64(nsec))
	return os.Chtimes(path, t, t) == nil
}
