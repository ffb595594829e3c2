package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 200

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns an uploaded résumé name into a single safe path
// segment. Separators become underscores, control characters are dropped and
// long names are cut while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || strings.Trim(cleaned, "._") == "" {
		return "", ErrInvalidFileName
	}

	runes := []rune(cleaned)
	if len(runes) <= maxFileNameLen {
		return cleaned, nil
	}
	ext := []rune("")
	if dot := strings.LastIndexByte(cleaned, '.'); dot > 0 && len(cleaned)-dot <= 10 {
		ext = []rune(cleaned[dot:])
	}
	return string(runes[:maxFileNameLen-len(ext)]) + string(ext), nil
}
