package evaluation

import (
	"strings"
	"unicode/utf8"
)

// RequirementField is the JSON field carrying the requirement text.
const RequirementField = "requirementText"

// RequirementFromBody extracts the requirement text from a decoded JSON body.
// Length checks are left to ValidateRequirement.
func RequirementFromBody(body map[string]any) (string, error) {
	if len(body) == 0 {
		return "", invalid("Request body is empty")
	}
	raw, ok := body[RequirementField]
	if !ok {
		return "", invalid("Missing required field: %s", RequirementField)
	}
	text, ok := raw.(string)
	if !ok {
		return "", invalid("%s must be a string", RequirementField)
	}
	return text, nil
}

// ValidateRequirement checks the trimmed length of text against [minLen, maxLen] in characters.
func ValidateRequirement(text string, minLen, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return "", invalid("%s cannot be empty", RequirementField)
	case n < minLen:
		return "", invalid("%s must be at least %d characters", RequirementField, minLen)
	case n > maxLen:
		return "", invalid("%s exceeds maximum length of %d characters", RequirementField, maxLen)
	}
	return trimmed, nil
}
