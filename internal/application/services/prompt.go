package services

import (
	"strings"
	"text/template"
)

var evaluationPrompt = template.Must(template.New("evaluation").Parse(`You are an expert software requirements analyst. Analyze the following
software requirement and provide a structured evaluation.

Requirement to evaluate:
"{{.Requirement}}"

Evaluate the requirement and respond with ONLY valid JSON in this exact format:
{
  "ambiguity": {"score": 1-10, "feedback": "ambiguous terms or phrases, or why the wording is clear"},
  "testability": {"score": 1-10, "feedback": "whether the requirement can be objectively verified"},
  "completeness": {"score": 1-10, "feedback": "what information is missing"},
  "suggestions": ["up to {{.MaxSuggestions}} concrete improvements"]
}

Important guidelines:
- ambiguity: 10 means no vague, unclear or subjective language
- testability: 10 means measurable, verifiable acceptance criteria
- completeness: 1 (very incomplete) to 10 (fully complete)
- Be specific and actionable in your feedback

Respond with ONLY the JSON object, no additional text.`))

// BuildPrompt renders the fixed evaluation prompt around requirement.
func BuildPrompt(requirement string, maxSuggestions int) string {
	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = evaluationPrompt.Execute(&b, struct {
		Requirement    string
		MaxSuggestions int
	}{requirement, maxSuggestions})
	return b.String()
}
