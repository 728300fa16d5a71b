package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparsableQuantity is returned when a quantity string is neither a
// plain number nor a number with a unit suffix. The failure stays local
// to the line item that carried the string.
var ErrUnparsableQuantity = errors.New("quantity does not match any known format")

// Vendor quantities are either "3" or "1,5kg": a decimal followed by an
// alphabetic unit.
var quantityPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-zA-Z]+)$`)

// ParseAmount converts a locale-formatted amount string (comma decimal
// separator) to a float. Empty input yields nil without error.
func ParseAmount(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return &value, nil
}

// ParseQuantity splits a locale-formatted quantity string into a value and
// an optional unit: "3" yields (3, ""), "2,5kg" yields (2.5, "kg").
func ParseQuantity(s string) (float64, string, error) {
	normalized := strings.ReplaceAll(s, ",", ".")

	if value, err := strconv.ParseFloat(normalized, 64); err == nil {
		return value, "", nil
	}

	groups := quantityPattern.FindStringSubmatch(normalized)
	if groups == nil {
		return 0, "", fmt.Errorf("%w: %q", ErrUnparsableQuantity, s)
	}

	value, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrUnparsableQuantity, s)
	}
	return value, groups[2], nil
}
