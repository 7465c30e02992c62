package openai

import (
	"fmt"
	"strings"
)

const answerPromptTemplate = `You are a retrieval-augmented assistant. Answer the user's question using ONLY the numbered context passages below.

Rules:
- Base every statement on the passages. Do not use outside knowledge.
- If the passages do not contain the answer, reply exactly: "I don't have enough information to answer that."
- Be concise. Do not restate the question or the passages.
- When passages disagree, prefer the earlier (more relevant) passage.

Context passages:
%s`

// buildSystemPrompt renders the grounding prompt with the retrieved
// passages numbered most relevant first.
func buildSystemPrompt(passages []string) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(p))
	}
	if b.Len() == 0 {
		b.WriteString("(no passages retrieved)\n")
	}
	return fmt.Sprintf(answerPromptTemplate, b.String())
}
