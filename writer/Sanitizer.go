package writer

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
var headerChars = regexp.MustCompile("[^A-Za-z0-9_]")

func isFormulaTrigger(c byte) bool {
	switch c {
	case '=', '+', '-', '@', '\t', '\r', '\n':
		return true
	}
	return false
}

// SanitizeCell neutralizes spreadsheet formula injection and drops control characters.
func SanitizeCell(value string) string {
	if value == "" {
		return value
	}
	if isFormulaTrigger(value[0]) {
		value = "'" + value
	}
	return controlChars.ReplaceAllString(value, "")
}

func SanitizeHeader(name string) string {
	name = headerChars.ReplaceAllString(name, "_")
	if name == "" {
		return "_"
	}
	if isFormulaTrigger(name[0]) {
		name = "_" + name
	}
	return name
}

// restoreCell reverses the apostrophe added by SanitizeCell.
func restoreCell(value string) string {
	if len(value) > 1 && value[0] == '\'' && isFormulaTrigger(value[1]) {
		return value[1:]
	}
	return value
}

func sanitizeHeaders(columns []string) []string {
	result := make([]string, 0, len(columns))
	for _, c := range columns {
		result = append(result, SanitizeHeader(strings.TrimSpace(c)))
	}
	return result
}
