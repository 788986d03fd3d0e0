package ollama

import (
	"fmt"
	"strings"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

func buildPlannerPrompt(goal string, used []string, maxQueries int) string {
	var usedBlock strings.Builder
	if len(used) == 0 {
		usedBlock.WriteString("(none yet)\n")
	}
	for _, query := range used {
		usedBlock.WriteString("- ")
		usedBlock.WriteString(query)
		usedBlock.WriteString("\n")
	}

	return fmt.Sprintf(`You generate search queries for a personal knowledge base.
Return strict JSON object with a single key:
queries (array of up to %d short search query strings).
Each query must differ from every already-issued query below and approach the goal from a new angle.
No markdown, no extra keys.

Goal:
%s

Already issued:
%s`, maxQueries, goal, usedBlock.String())
}

func buildJudgePrompt(goal string, docs []domain.DocumentResult) string {
	var evidence strings.Builder
	if len(docs) == 0 {
		evidence.WriteString("(no documents found)\n")
	}
	for idx, doc := range docs {
		snippet := doc.Summary
		if snippet == "" && len(doc.Chunks) > 0 {
			snippet = doc.Chunks[0].Content
		}
		const maxSnippet = 600
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet]
		}
		evidence.WriteString(fmt.Sprintf("[%d] title=%s score=%.3f\n%s\n\n", idx+1, doc.Title, doc.Score, snippet))
	}

	return fmt.Sprintf(`You judge whether retrieved documents contain enough information to answer a question.
Return strict JSON object with keys:
can_answer (boolean), reasoning (short string).
No markdown, no extra keys.

Question:
%s

Documents:
%s`, goal, evidence.String())
}
