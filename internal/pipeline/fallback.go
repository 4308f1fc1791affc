package pipeline

import (
	"regexp"
	"strings"

	"woboard/internal"
)

// BodyRule reads a field from the full text around a marker instead of a single
// labeled line. Body rules only fill fields the line pass left absent.
type BodyRule struct {
	Name   string
	Marker *regexp.Regexp
	Apply  func(text string, loc []int, out Values)
}

var bodyRules = []BodyRule{
	{Name: "instructions", Marker: reInstructionsMarker, Apply: instructionsBody},
	{Name: "deliverables", Marker: reDeliverablesMarker, Apply: deliverablesBody},
}

// instructionsBody reads the notes up to a Deliverables marker.
func instructionsBody(text string, loc []int, out Values) {
	body := text[loc[1]:]
	if d := reDeliverablesMarker.FindStringIndex(body); d != nil {
		body = body[:d[0]]
	}
	setAbsent(out, internal.FieldNotes, blockText(body))
}

// deliverablesBody splits around the marker: the paragraph before it describes the
// scope of work, the text after it becomes the notes. An instructions line ends
// either side.
func deliverablesBody(text string, loc []int, out Values) {
	before := Lines(text[:loc[0]])
	end := len(before)
	for end > 0 && before[end-1] == "" {
		end--
	}
	start := end
	for start > 0 && before[start-1] != "" {
		start--
	}
	for k := start; k < end; k++ {
		if reInstructionsMarker.MatchString(before[k]) {
			end = k
			break
		}
	}
	setAbsent(out, internal.FieldScopeOfWork, strings.Join(before[start:end], "\n"))

	after := strings.TrimLeft(text[loc[1]:], ": \t")
	if m := reInstructionsMarker.FindStringIndex(after); m != nil {
		after = after[:m[0]]
		if nl := strings.LastIndex(after, "\n"); nl >= 0 {
			after = after[:nl]
		} else {
			after = ""
		}
	}
	setAbsent(out, internal.FieldNotes, blockText(after))
}

func blockText(s string) string {
	return strings.TrimSpace(Lines(s).Text())
}

// FallbackRule scans every line for a field no label produced.
type FallbackRule struct {
	Name  string
	Field internal.Field
	Scan  func(lines LineSequence) (string, bool)
}

var fallbackRules = []FallbackRule{
	{Name: "state-comma-token", Field: internal.FieldState, Scan: firstSubmatch(reStateFallback, nil)},
	{Name: "city-before-state", Field: internal.FieldCity, Scan: firstSubmatch(reCityFallback, nil)},
	{Name: "wo-token", Field: internal.FieldWorkOrder, Scan: firstSubmatch(reWorkOrderFallback, nil)},
	{Name: "po-token", Field: internal.FieldPurchaseOrder, Scan: firstSubmatch(rePOFallback, nil)},
	{Name: "date-token", Field: internal.FieldScheduledDate, Scan: firstMatch(reDate, reDateHint)},
	{Name: "check-in-phone-token", Field: internal.FieldCheckInPhone, Scan: firstMatch(rePhone, reCheckInHint)},
	{Name: "price-token", Field: internal.FieldFlatRatePrice, Scan: firstSubmatch(reAmount, rePriceHint)},
	{Name: "invoice-email", Field: internal.FieldPMEmail, Scan: firstMatch(reEmail, reInvoiceHint)},
}

// FallbackRules returns the fallback rules in evaluation order.
func FallbackRules() []FallbackRule {
	out := make([]FallbackRule, len(fallbackRules))
	copy(out, fallbackRules)
	return out
}

// firstSubmatch returns the first capture group of the first matching line.
// A non-nil hint restricts the scan to lines that also match it.
func firstSubmatch(re, hint *regexp.Regexp) func(LineSequence) (string, bool) {
	return func(lines LineSequence) (string, bool) {
		for _, line := range lines {
			if hint != nil && !hint.MatchString(line) {
				continue
			}
			if m := re.FindStringSubmatch(line); m != nil {
				if v := strings.TrimSpace(m[1]); v != "" {
					return v, true
				}
			}
		}
		return "", false
	}
}

func firstMatch(re, hint *regexp.Regexp) func(LineSequence) (string, bool) {
	return func(lines LineSequence) (string, bool) {
		for _, line := range lines {
			if hint != nil && !hint.MatchString(line) {
				continue
			}
			if m := re.FindString(line); m != "" {
				return strings.TrimSpace(m), true
			}
		}
		return "", false
	}
}

func setAbsent(out Values, f internal.Field, value string) {
	if _, ok := out[f]; ok {
		return
	}
	out.set(f, value)
}
