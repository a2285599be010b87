package answer

import "strings"

// FallbackAnswer is the phrase the model is instructed to use when the
// context does not contain the answer.
const FallbackAnswer = "I don't have enough information to answer that question."

// AssemblePrompt builds the question-answering prompt. Context passages are
// joined by newlines in the order given.
func AssemblePrompt(question string, contexts []string) string {
	var b strings.Builder

	b.WriteString("Based on the following context, please answer the question. ")
	b.WriteString("If the answer cannot be found in the context, say \"")
	b.WriteString(FallbackAnswer)
	b.WriteString("\"\n\n")

	b.WriteString("Context:\n")
	b.WriteString(strings.Join(contexts, "\n"))
	b.WriteString("\n\n")

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	b.WriteString("Answer:")

	return b.String()
}
