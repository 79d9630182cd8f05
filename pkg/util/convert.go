package util

import (
	"fmt"
	"strconv"
	"strings"
)

/**
 * Loose type conversion helpers for values coming out of CSV parses,
 * sqlite scans and JSON decodes, where the concrete Go type of a cell
 * is whatever the decoder happened to choose.
 */

// GetAsString converts various types to a string representation
func GetAsString(s any) (string, error) {
	if s == nil {
		return "", fmt.Errorf("cannot convert nil to string")
	}

	switch v := s.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// GetAsInteger converts various types to an integer
// Strings are parsed; floats are accepted when they carry no fraction worth keeping
func GetAsInteger(s any) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("cannot convert nil to integer")
	}

	switch v := s.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		t := strings.TrimSpace(v)
		if t == "" {
			return 0, fmt.Errorf("cannot convert empty string to integer")
		}
		if n, err := strconv.Atoi(t); err == nil {
			return n, nil
		}
		// CSV sources sometimes carry integral values as "17.0"
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("cannot convert %q to integer", v)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", s)
	}
}

// GetAsFloat converts various types to a float64
func GetAsFloat(s any) (float64, error) {
	if s == nil {
		return 0, fmt.Errorf("cannot convert nil to float")
	}

	switch v := s.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		t := strings.TrimSpace(v)
		if t == "" {
			return 0, fmt.Errorf("cannot convert empty string to float")
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", s)
	}
}
