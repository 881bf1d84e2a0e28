package utils

import (
	"fmt"
	"strconv"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}

	return result, nil
}

// ParseOptionalInt64 returns nil for an empty value.
func ParseOptionalInt64(value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}

	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", value)
	}

	return &result, nil
}

// ParseID parses a positive numeric path identifier.
func ParseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
