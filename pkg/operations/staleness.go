/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package operations

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ParseMaxStale parses the --max-stale duration syntax (§6): a bare
// number of days, or a number suffixed with s, m, h or d.
func ParseMaxStale(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	unit := s[len(s)-1]
	switch unit {
	case 's', 'm', 'h':
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, errors.Wrapf(err, "invalid max-stale %q", s)
		}
		switch unit {
		case 's':
			return time.Duration(n) * time.Second, nil
		case 'm':
			return time.Duration(n) * time.Minute, nil
		default:
			return time.Duration(n) * time.Hour, nil
		}
	case 'd':
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, errors.Wrapf(err, "invalid max-stale %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid max-stale %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
}
