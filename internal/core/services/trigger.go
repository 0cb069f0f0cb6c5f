package services

import "strings"

// Trigger is the result of scanning a message for a trigger phrase
type Trigger struct {
	// Matched is true when one of the phrases occurs in the message
	Matched bool
	// Phrase is the phrase that matched
	Phrase string
	// Term is the trimmed text after the first occurrence of Phrase
	Term string
	// UsageHint is true when the message is nothing but the phrase
	UsageHint bool
}

// TriggerDetector finds the search term in free text
type TriggerDetector struct {
	phrases []string
}

// NewTriggerDetector creates a detector. primary is checked before alias.
func NewTriggerDetector(primary, alias string) *TriggerDetector {
	var phrases []string
	for _, p := range []string{primary, alias} {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &TriggerDetector{phrases: phrases}
}

// Phrases returns the configured phrases in priority order
func (d *TriggerDetector) Phrases() []string {
	return append([]string(nil), d.phrases...)
}

// Detect scans content for the first configured phrase that occurs in it.
// The phrase match is case-sensitive; only one extraction is attempted.
func (d *TriggerDetector) Detect(content string) Trigger {
	if strings.TrimSpace(content) == "" {
		return Trigger{}
	}

	for _, phrase := range d.phrases {
		idx := strings.Index(content, phrase)
		if idx < 0 {
			continue
		}

		term := strings.TrimSpace(content[idx+len(phrase):])
		return Trigger{
			Matched:   true,
			Phrase:    phrase,
			Term:      term,
			UsageHint: term == "" && isBareTrigger(content, phrase),
		}
	}

	return Trigger{}
}

// isBareTrigger reports whether the whole message is just the phrase,
// optionally written as a slash command
func isBareTrigger(content, phrase string) bool {
	msg := strings.TrimSpace(content)
	msg = strings.TrimPrefix(msg, "/")
	return strings.EqualFold(strings.TrimSpace(msg), phrase)
}
