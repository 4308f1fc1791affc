package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reFileName = regexp.MustCompile(`[<>:"/\\|?*\s]+`)
)

func StringPtr(v string) *string {
	return &v
}

func NormalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SanitizeFileName makes a message id or subject usable as a file name.
func SanitizeFileName(input string) string {
	out := strings.Trim(reFileName.ReplaceAllString(input, "_"), "_")
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		return "document"
	}
	return out
}
