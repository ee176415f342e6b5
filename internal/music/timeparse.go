package music

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned by ParseTime for input it does not understand.
var ErrInvalidTimeFormat = errors.New("invalid time format")

var (
	colonTime = regexp.MustCompile(`^(\d+):(\d+)(?::(\d+))?$`)
	unitTime  = regexp.MustCompile(`^(?:(\d+)m)?(?:(\d+)s)?$`)
	bareTime  = regexp.MustCompile(`^\d+$`)
)

// ParseTime accepts "H:MM:SS", "M:SS", "<N>m<N>s" with either part optional,
// or a bare number of seconds.
func ParseTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidTimeFormat
	}

	if m := colonTime.FindStringSubmatch(s); m != nil {
		parts := []string{m[1], m[2]}
		if m[3] != "" {
			parts = append(parts, m[3])
		}
		var secs int64
		for _, p := range parts {
			n, err := atoi(p)
			if err != nil {
				return 0, err
			}
			secs = secs*60 + n
		}
		return seconds(secs)
	}

	if m := unitTime.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		var mins, secs int64
		var err error
		if m[1] != "" {
			if mins, err = atoi(m[1]); err != nil {
				return 0, err
			}
		}
		if m[2] != "" {
			if secs, err = atoi(m[2]); err != nil {
				return 0, err
			}
		}
		return seconds(mins*60 + secs)
	}

	if bareTime.MatchString(s) {
		n, err := atoi(s)
		if err != nil {
			return 0, err
		}
		return seconds(n)
	}

	return 0, ErrInvalidTimeFormat
}

func atoi(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return n, nil
}

// seconds converts to a Duration, rejecting values that would overflow.
func seconds(n int64) (time.Duration, error) {
	if n < 0 || n > int64(time.Duration(1<<62)/time.Second) {
		return 0, ErrInvalidTimeFormat
	}
	return time.Duration(n) * time.Second, nil
}
