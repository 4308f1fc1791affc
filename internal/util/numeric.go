package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDigits         = regexp.MustCompile(`^\d+$`)
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reThousandsDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
)

// CoerceInt converts an extracted value for a numeric board column. Anything that
// is not a plain (optionally thousands-separated) integer becomes 0.
func CoerceInt(value string) int64 {
	token := normalizeNumericToken(strings.TrimSpace(value))
	if !reDigits.MatchString(token) {
		return 0
	}
	parsed, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// ParseAmount reads a money value such as "$1,250.00" or "75".
func ParseAmount(value string) (float64, bool) {
	token := strings.TrimSpace(value)
	token = strings.TrimPrefix(token, "$")
	token = normalizeNumericToken(strings.TrimSpace(token))
	if token == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if reThousandsDot.MatchString(compact) {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.ReplaceAll(compact, ",", ".")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
