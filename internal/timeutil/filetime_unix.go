//go:build unix

package timeutil

import "golang.org/x/sys/unix"

// SetFileTime sets path's access and modification time to the given epoch
// at nanosecond precision. Returns false on any syscall error.
func SetFileTime(path string, epoch int64, nsec uint32) bool {
	ts := unix.Timespec{Sec: epoch, Nsec: int64(nsec)}
	times := []unix.Timespec{ts, ts}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, times, 0) == nil
}
