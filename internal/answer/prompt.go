package answer

import (
	"strings"

	"github.com/thechalk/chalkbot/internal/models"
)

// GroundedPrompt builds the prompt for a query with retrieved context. The
// generator is told to answer from the excerpts, to say so when they are
// insufficient, and to fall back on general knowledge rather than invent
// citations.
func GroundedPrompt(query string, context []models.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("You are a STEM tutoring assistant. Use the study material excerpts below to answer the question. ")
	b.WriteString("Prefer the excerpts; if they do not cover the question, say so briefly and answer from general knowledge. ")
	b.WriteString("Do not invent facts or cite material that is not in the excerpts.\n\n")
	b.WriteString("Excerpts:\n")
	for _, res := range context {
		b.WriteString(res.Text)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// DegradedPrompt builds the context-free prompt used when retrieval found
// nothing usable or could not run.
func DegradedPrompt(query string) string {
	var b strings.Builder
	b.WriteString("You are a STEM tutoring assistant. Answer the following question clearly and accurately.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
