package pipeline

import (
	"regexp"
	"strings"

	"woboard/internal"
)

// Values holds what one extraction pass found. A missing key means absent.
type Values map[internal.Field]string

func (v Values) Get(f internal.Field) (string, bool) {
	value, ok := v[f]
	return value, ok
}

// set never lets an empty value replace a present one.
func (v Values) set(f internal.Field, value string) {
	value = strings.TrimSpace(value)
	if value == "" || value == internal.NotAvailable {
		return
	}
	v[f] = value
}

// Extractor reads a value for a classified line. loc is the label span on lines[i].
// It returns how many following lines it consumed.
type Extractor func(lines LineSequence, i int, loc []int, out Values) int

// Rule classifies a line by label and extracts its value.
type Rule struct {
	Name    string
	Label   *regexp.Regexp
	Extract Extractor
}

// Order matters: "purchase order" and "p.o." must win before the work-order rules
// can read an order number from the same line.
// Assigned in init because remarks reaches Classify, which reads lineRules.
var lineRules []Rule

func init() {
	lineRules = []Rule{
		{Name: "purchase-order", Label: rePurchaseOrderLabel, Extract: orderNumber(internal.FieldPurchaseOrder)},
		{Name: "purchase-order-abbrev", Label: rePOAbbrevLabel, Extract: orderNumber(internal.FieldPurchaseOrder)},
		{Name: "work-order", Label: reWorkOrderLabel, Extract: orderNumber(internal.FieldWorkOrder)},
		{Name: "work-order-abbrev", Label: reWOAbbrevLabel, Extract: orderNumber(internal.FieldWorkOrder)},
		{Name: "scheduled-date", Label: reScheduledDateLabel, Extract: sameLine(internal.FieldScheduledDate, ":")},
		{Name: "check-in-phone", Label: reCheckInLabel, Extract: sameLine(internal.FieldCheckInPhone, ":")},
		{Name: "ivr-backup-phone", Label: reBackupLabel, Extract: sameLine(internal.FieldBackupPhone, ":")},
		{Name: "flat-rate-price", Label: reFlatRateLabel, Extract: sameLine(internal.FieldFlatRatePrice, "$")},
		{Name: "shipping-terms", Label: reShippingTermsLabel, Extract: sameLine(internal.FieldShippingTerms, ":")},
		{Name: "payment-terms", Label: rePaymentTermsLabel, Extract: sameLine(internal.FieldPaymentTerms, ":")},
		{Name: "remit-to", Label: reRemitLabel, Extract: remitTo},
		{Name: "ordered-by", Label: reOrderedByLabel, Extract: sameLine(internal.FieldPM, ":")},
		{Name: "location", Label: reLocationLabel, Extract: sameLine(internal.FieldLocation, ":")},
		{Name: "city", Label: reCityLabel, Extract: afterLabel(internal.FieldCity)},
		{Name: "state", Label: reStateLabel, Extract: afterLabel(internal.FieldState)},
		{Name: "nte", Label: reNTELabel, Extract: nteLine},
		{Name: "remarks", Label: reRemarksLabel, Extract: remarks},
	}
}

// LineRules returns the line rules in evaluation order.
func LineRules() []Rule {
	out := make([]Rule, len(lineRules))
	copy(out, lineRules)
	return out
}

// Classify returns the first rule whose label appears on line.
func Classify(line string) (Rule, []int, bool) {
	for _, rule := range lineRules {
		if loc := rule.Label.FindStringIndex(line); loc != nil {
			return rule, loc, true
		}
	}
	return Rule{}, nil, false
}

func sameLine(field internal.Field, delim string) Extractor {
	return func(lines LineSequence, i int, loc []int, out Values) int {
		if value, ok := afterDelimiter(lines[i][loc[1]:], delim); ok {
			out.set(field, value)
		}
		return 0
	}
}

// orderNumber takes the value after a colon, or a trailing order-number token when
// the line has no colon after the label.
func orderNumber(field internal.Field) Extractor {
	return func(lines LineSequence, i int, loc []int, out Values) int {
		rest := lines[i][loc[1]:]
		if value, ok := afterDelimiter(rest, ":"); ok {
			out.set(field, strings.TrimLeft(value, "# \t"))
			return 0
		}
		if m := reOrderToken.FindStringSubmatch(rest); m != nil {
			out.set(field, m[1])
		}
		return 0
	}
}

// afterLabel is for labels whose pattern already includes the delimiter.
func afterLabel(field internal.Field) Extractor {
	return func(lines LineSequence, i int, loc []int, out Values) int {
		out.set(field, strings.TrimLeft(lines[i][loc[1]:], ": \t"))
		return 0
	}
}

// remarks takes a value on the label line, otherwise the next non-blank line
// unless that line starts with a label of its own.
func remarks(lines LineSequence, i int, loc []int, out Values) int {
	if value, ok := afterDelimiter(lines[i][loc[1]:], ":"); ok {
		out.set(internal.FieldNotes, value)
		return 0
	}
	j, ok := lines.NextNonBlank(i + 1)
	if !ok || startsWithLabel(lines[j]) {
		return 0
	}
	out.set(internal.FieldNotes, lines[j])
	return j - i
}

func startsWithLabel(line string) bool {
	_, loc, ok := Classify(line)
	return ok && loc[0] == 0
}

// remitTo reads the invoice address from the label line or the next non-blank line,
// accepting only email-shaped values.
func remitTo(lines LineSequence, i int, loc []int, out Values) int {
	if email := reEmail.FindString(lines[i][loc[1]:]); email != "" {
		out.set(internal.FieldPMEmail, email)
		return 0
	}
	j, ok := lines.NextNonBlank(i + 1)
	if !ok {
		return 0
	}
	email := reEmail.FindString(lines[j])
	if email == "" {
		return 0
	}
	out.set(internal.FieldPMEmail, email)
	return j - i
}

// nteLine keeps the marked line as the item description and reads unit cost,
// quantity and total cost positionally from the line right after it.
func nteLine(lines LineSequence, i int, _ []int, out Values) int {
	out.set(internal.FieldItemDescription, lines[i])
	if i+1 >= len(lines) {
		return 0
	}
	tokens := strings.Fields(lines[i+1])
	costFields := []internal.Field{internal.FieldUnitCost, internal.FieldQuantity, internal.FieldTotalCost}
	for k, f := range costFields {
		if k < len(tokens) {
			out.set(f, tokens[k])
		}
	}
	return 1
}

// afterDelimiter returns the text after the first delimiter, with repeated
// delimiters and surrounding whitespace stripped.
func afterDelimiter(s, delim string) (string, bool) {
	idx := strings.Index(s, delim)
	if idx < 0 {
		return "", false
	}
	value := strings.TrimSpace(strings.TrimLeft(s[idx+len(delim):], delim+" \t"))
	return value, value != ""
}
