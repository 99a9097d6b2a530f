package auth

import (
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ParseExpiry parses duration strings as used in token configuration. On
// top of the stdlib units it accepts day ("30d") and week ("2w") suffixes,
// which token TTLs are usually expressed in.
func ParseExpiry(pattern string) (time.Duration, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, goerrors.New("empty duration", goerrors.CategoryBadInput)
	}

	var unit time.Duration
	switch pattern[len(pattern)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		d, err := time.ParseDuration(pattern)
		if err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid duration")
		}
		return d, nil
	}

	value, err := strconv.ParseFloat(pattern[:len(pattern)-1], 64)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid duration")
	}

	return time.Duration(value * float64(unit)), nil
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := ParseExpiry(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}
