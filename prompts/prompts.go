package prompts

import (
	_ "embed"
	"strings"
)

//go:embed campus_assistant.txt
var campusAssistant string

const questionLead = "Based on the above information, please answer this student question:\n\n"

// CampusAssistant is the persona and guideline preamble, without trailing
// newlines.
func CampusAssistant() string { return strings.TrimRight(campusAssistant, "\n") }

// BuildPrompt wraps an assembled grounding context and the student's
// question into the single prompt sent to the generation service.
func BuildPrompt(groundingContext, question string) string {
	var b strings.Builder
	b.WriteString(CampusAssistant())
	b.WriteString("\n\n")
	b.WriteString(groundingContext)
	b.WriteString(questionLead)
	b.WriteString(question)
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}
