package pipeline

// Extraction is the raw outcome of one engine run.
type Extraction struct {
	Text     string
	Lines    LineSequence
	Primary  Values
	Fallback Values
	Fired    []string
}

// Engine applies the line rules, body rules and fallback rules to document text.
// It keeps no state between calls.
type Engine struct {
	rules     []Rule
	body      []BodyRule
	fallbacks []FallbackRule
}

func NewEngine() *Engine {
	return &Engine{rules: lineRules, body: bodyRules, fallbacks: fallbackRules}
}

func (e *Engine) Extract(text string) Extraction {
	lines := Lines(text)
	primary := Values{}
	fired := []string{}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		for _, rule := range e.rules {
			loc := rule.Label.FindStringIndex(line)
			if loc == nil {
				continue
			}
			i += rule.Extract(lines, i, loc, primary)
			fired = append(fired, rule.Name)
			break
		}
	}

	for _, rule := range e.body {
		if loc := rule.Marker.FindStringIndex(text); loc != nil {
			rule.Apply(text, loc, primary)
			fired = append(fired, rule.Name)
		}
	}

	fallback := Values{}
	for _, rule := range e.fallbacks {
		if _, ok := primary[rule.Field]; ok {
			continue
		}
		if value, ok := rule.Scan(lines); ok {
			fallback.set(rule.Field, value)
			fired = append(fired, rule.Name)
		}
	}

	return Extraction{Text: text, Lines: lines, Primary: primary, Fallback: fallback, Fired: fired}
}
