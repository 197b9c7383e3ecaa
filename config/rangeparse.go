package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRange parses a single value or inclusive "start-end" range into
// a sequence of zero-padded string tokens. An empty input yields an
// empty sequence with no error; the caller interprets that as
// "unconstrained". Invalid input (non-numeric tokens, start > end, or
// values outside [min, max]) yields an empty sequence and an error.
func ParseRange(input string, min, max, width int) ([]string, error) {
	if input == "" {
		return nil, nil
	}

	var start, end int
	var err error

	if strings.Contains(input, "-") {
		parts := strings.SplitN(input, "-", 2)
		start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: use a single value or start-end", input)
		}
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: use a single value or start-end", input)
		}
		if start > end {
			return nil, fmt.Errorf("invalid range %q: start cannot be greater than end", input)
		}
	} else {
		start, err = strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: use a single value or start-end", input)
		}
		end = start
	}

	if start < min || end > max {
		return nil, fmt.Errorf("value %q out of bounds: must be between %d and %d", input, min, max)
	}

	tokens := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		tokens = append(tokens, fmt.Sprintf("%0*d", width, i))
	}
	return tokens, nil
}

// ValidateDOY parses a day-of-year input. DOY tokens are zero-padded
// to 3 digits to match the archive's directory layout.
func ValidateDOY(input string) ([]string, error) {
	return ParseRange(input, 1, 366, 3)
}

// ValidateHour parses an hour input into 2-digit tokens.
func ValidateHour(input string) ([]string, error) {
	return ParseRange(input, 0, 23, 2)
}
