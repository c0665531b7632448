// Package validate provides shared validation functions for command input.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var quarterRe = regexp.MustCompile(`^\d{4}-Q[1-4]$`)

// Title validates a title is non-empty after trimming whitespace.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Quarter validates a quarter label such as "1404-Q1". Empty is allowed.
func Quarter(q string) error {
	if q == "" || quarterRe.MatchString(q) {
		return nil
	}
	return fmt.Errorf("quarter %q must look like 1404-Q1", q)
}

// Number validates s parses as a finite float.
func Number(s string) error {
	if _, err := ParseNumber(s); err != nil {
		return err
	}
	return nil
}

// ParseNumber parses a trimmed finite float. "inf" and "NaN" are rejected.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}
