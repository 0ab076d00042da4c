package utils

import (
	"strings"
	"unicode/utf8"
)

func IsLengthValid(str string, minLen, maxLen int) bool {
	length := utf8.RuneCountInString(str)
	return length >= minLen && length <= maxLen
}

// IsBlank reports whether str is empty or whitespace only
func IsBlank(str string) bool {
	return strings.TrimSpace(str) == ""
}

// FirstNonBlank returns the first value that is not blank
func FirstNonBlank(values ...string) string {
	for _, v := range values {
		if !IsBlank(v) {
			return v
		}
	}
	return ""
}
