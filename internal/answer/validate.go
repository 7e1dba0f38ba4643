package answer

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinAnswerLength is the shortest generated text accepted as an
// answer, in characters.
const DefaultMinAnswerLength = 50

// DefaultRefusalPhrases marks generated text where the model echoed back a
// refusal instead of answering from general knowledge as instructed. The
// list is heuristic and language-specific, so deployments override it from
// config; the defaults cover the English markers plus the Vietnamese
// phrasing the platform's prompts elicit.
func DefaultRefusalPhrases() []string {
	return []string{
		"no information found",
		"not mentioned in the document",
		"could not find this in the document",
		"không có thông tin",
	}
}

// Validator decides whether generated text is an acceptable answer.
type Validator struct {
	minLength      int
	refusalPhrases []string
}

// NewValidator creates a validator. A minLength of 0 or less uses
// DefaultMinAnswerLength; a nil phrase list uses DefaultRefusalPhrases.
func NewValidator(minLength int, refusalPhrases []string) *Validator {
	if minLength <= 0 {
		minLength = DefaultMinAnswerLength
	}
	if refusalPhrases == nil {
		refusalPhrases = DefaultRefusalPhrases()
	}
	lowered := make([]string, 0, len(refusalPhrases))
	for _, p := range refusalPhrases {
		if p = strings.TrimSpace(p); p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}
	return &Validator{minLength: minLength, refusalPhrases: lowered}
}

// Validate reports whether text passes: long enough and free of refusal
// phrases. Phrase matching is case-insensitive.
func (v *Validator) Validate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < v.minLength {
		return false
	}
	lowered := strings.ToLower(trimmed)
	for _, phrase := range v.refusalPhrases {
		if strings.Contains(lowered, phrase) {
			return false
		}
	}
	return true
}
