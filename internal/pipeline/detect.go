package pipeline

import "strings"

type DetectResult struct {
	IsWorkOrder bool
	Score       float64
	Reason      string
}

var detectKeywords = []string{"work order", "purchase order", "wo#", "po#", "nte", "scheduled date", "remit"}

// DetectWorkOrder scores how likely a message carries a work order. Label lines
// the engine recognizes count for more than loose keywords.
func DetectWorkOrder(subject, text string, attachmentNames []string, threshold float64) DetectResult {
	subject = strings.ToLower(subject)
	lower := strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}

	labelHits := countLabelLines(text)
	if labelHits >= 3 {
		score += 0.4
	} else if labelHits >= 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			score += 0.25
			break
		}
	}
	if score > 1 {
		score = 1
	}

	ok := score >= threshold
	reason := "rules_negative"
	if ok {
		reason = "rules_positive"
	}
	return DetectResult{IsWorkOrder: ok, Score: score, Reason: reason}
}

func countLabelLines(text string) int {
	count := 0
	for _, line := range Lines(text) {
		if line == "" {
			continue
		}
		if _, _, ok := Classify(line); ok {
			count++
		}
	}
	return count
}
