package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// IsTruthy reports whether a contract data value switches a conditional block on.
// Non-empty strings, true and non-zero numbers are truthy; nil and everything else are not.
func IsTruthy(val any) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case int32:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []byte:
		return len(v) > 0
	default:
		return false
	}
}

// IsBlank reports whether a value counts as "not filled in".
// Strings are trimmed; false counts as blank so that unchecked checkboxes read as empty.
func IsBlank(val any) bool {
	if val == nil {
		return true
	}
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	default:
		return false
	}
}

// ToString renders a scalar data value the way it would be typed into a form field
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseLeadingFloat parses the longest numeric prefix of s, ignoring leading spaces.
// "12.5円" yields 12.5, "abc" fails. Signs and one decimal point are accepted.
func ParseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range s {
		switch {
		case (r == '+' || r == '-') && i == 0:
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
