package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate приводит номерной знак к единому виду:
// без пробельных символов и дефисов, в верхнем регистре.
func NormalizePlate(raw string) string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '‐' || r == '–' {
			return -1
		}
		return r
	}, raw)
	return strings.ToUpper(normalized)
}
