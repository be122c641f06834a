package parser

import (
	"strings"
	"unicode/utf8"
)

const byteOrderMark = "\ufeff"

// sanitizeUTF8 ensures string is valid UTF-8 for database storage.
// It replaces invalid UTF-8 sequences with the replacement character '?'.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	for _, r := range s {
		if r == utf8.RuneError {
			result.WriteRune('?')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// detectDelimiter picks the CSV separator from the header line. Spanish
// locale exports use ';', everything else ','.
func detectDelimiter(line string) rune {
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	if strings.Count(line, "\t") > strings.Count(line, ",") {
		return '\t'
	}
	return ','
}

// isBlankRow reports whether every cell of row is empty.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
