// Package timeutil converts the timestamp encodings found in installer
// payloads (FAT date/time, Win32 FILETIME) to Unix epochs and applies them
// to extracted files.
//
// All UTC conversions are purely computational (time.Date in time.UTC);
// nothing here touches the TZ environment variable, so every function is
// safe for concurrent use except SetLocalTimezone, which swaps an
// unsynchronized package-level zone and should be called once during setup.
package timeutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// FiletimeOffset is the number of 100ns ticks between the FILETIME epoch
// (1601-01-01) and the Unix epoch (1970-01-01).
const FiletimeOffset int64 = 0x019DB1DED53E8000

// localZone is the zone used by ToLocalTime. Overridden by SetLocalTimezone.
var localZone = time.Local

// getBits extracts bits [first, last] of v, LSB first.
func getBits(v uint16, first, last uint) uint16 {
	return (v >> first) & (1<<(last-first+1) - 1)
}

// ParseTime converts a broken-down UTC clock time to a Unix timestamp.
func ParseTime(year int, month time.Month, day, hour, min, sec int) int64 {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC).Unix()
}

// FormatTime converts a Unix timestamp to UTC clock time.
func FormatTime(epoch int64) time.Time {
	return time.Unix(epoch, 0).UTC()
}

// ParseFATTime decodes the two-word FAT date/time encoding used by 16-bit
// installers. Seconds are stored with two-second granularity; there is no
// sub-second component.
func ParseFATTime(timeWord, dateWord uint16) int64 {
	sec := int(getBits(timeWord, 0, 4)) * 2        // [0, 58]
	min := int(getBits(timeWord, 5, 10))           // [0, 59]
	hour := int(getBits(timeWord, 11, 15))         // [0, 23]
	mday := int(getBits(dateWord, 0, 4))           // [1, 31]
	mon := time.Month(getBits(dateWord, 5, 8))     // [1, 12]
	year := int(getBits(dateWord, 9, 15)) + 1980   // [1980, 2107]

	return ParseTime(year, mon, mday, hour, min, sec)
}

// ParseFiletime decodes a Win32 FILETIME (100ns ticks since 1601-01-01 UTC)
// used by 32-bit installers. Values below the 1970 offset are unexpected but
// decoded anyway; the signed arithmetic then yields a negative epoch.
func ParseFiletime(filetime int64) (epoch int64, nsec uint32) {
	if filetime < FiletimeOffset {
		slog.Warn("unexpected filetime", "filetime", filetime)
	}
	filetime -= FiletimeOffset

	epoch = filetime / 10000000
	rem := filetime % 10000000
	if rem < 0 {
		// floor the division so nsec stays in [0, 1e9)
		epoch--
		rem += 10000000
	}
	nsec = uint32(rem) * 100
	return epoch, nsec
}

// ToLocalTime formats a timestamp as UTC clock time and reinterprets that
// clock time in the zone configured via SetLocalTimezone.
func ToLocalTime(epoch int64) int64 {
	u := time.Unix(epoch, 0).UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), 0, localZone).Unix()
}

// SetLocalTimezone sets the zone used by ToLocalTime. The argument is
// either an IANA zone name ("Europe/Berlin") or a fixed offset such as
// "GMT+1", where "+1" means one hour east of UTC. That matches what users
// expect and is deliberately the opposite of how the POSIX TZ variable
// reads the sign.
func SetLocalTimezone(timezone string) error {
	if loc, err := time.LoadLocation(timezone); err == nil {
		localZone = loc
		return nil
	}

	loc, err := parseFixedZone(timezone)
	if err != nil {
		return err
	}
	localZone = loc
	return nil
}

// parseFixedZone parses "NAME[+|-]HH[:MM]" into a fixed zone, with "+"
// meaning east of UTC.
func parseFixedZone(timezone string) (*time.Location, error) {
	idx := strings.IndexAny(timezone, "+-")
	if idx < 0 {
		return nil, fmt.Errorf("unknown timezone %q", timezone)
	}

	sign := int64(1)
	if timezone[idx] == '-' {
		sign = -1
	}

	var hours, mins int64
	offsetStr := timezone[idx+1:]
	if h, m, ok := strings.Cut(offsetStr, ":"); ok {
		hh, err1 := strconv.ParseInt(h, 10, 64)
		mm, err2 := strconv.ParseInt(m, 10, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid timezone offset %q", timezone)
		}
		hours, mins = hh, mm
	} else {
		hh, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone offset %q", timezone)
		}
		hours = hh
	}

	offset := sign * (hours*3600 + mins*60)
	return time.FixedZone(timezone, int(offset)), nil
}
