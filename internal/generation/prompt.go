package generation

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/quizforge/internal/domain"
)

const (
	// baseTokens covers the prompt echo and JSON framing
	baseTokens = 1000
	// tokensPerQuestion is the budget for one fact with its explanation
	tokensPerQuestion = 300
	// maxTokensCeiling bounds cost and latency regardless of question count
	maxTokensCeiling = 4000
)

// TokenBudget scales the completion budget with the question count, capped at the ceiling
func TokenBudget(numQuestions int) int {
	budget := baseTokens + tokensPerQuestion*numQuestions
	if budget > maxTokensCeiling {
		return maxTokensCeiling
	}
	return budget
}

const outputContract = `Respond with only a JSON object of this exact shape:
{"questions": [{"id": "1", "text": "statement", "isTrue": true, "explanation": "why the statement is true or false"}]}
Return exactly %d items. Mix true and false statements. Every explanation must be a full sentence.`

// BuildPrompt builds the interactive prompt for free-text study material or a special category
func BuildPrompt(content string, count int, difficulty domain.Difficulty, category *Category) string {
	var sb strings.Builder

	if category != nil {
		sb.WriteString(fmt.Sprintf(category.Template, count, difficulty))
		if topic := category.Transform(content); topic != "" {
			sb.WriteString("\nFocus: ")
			sb.WriteString(topic)
		}
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("You are a study assistant. Read the study material below and write %d true/false statements that test understanding of it at %s difficulty.\n\n", count, difficulty))
		sb.WriteString("Study material:\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")
		sb.WriteString("Requirements:\n")
		sb.WriteString("- Statements must be answerable from the material alone\n")
		sb.WriteString("- False statements should be plausible, not absurd\n")
		sb.WriteString("- Do not repeat the same fact twice\n\n")
	}

	sb.WriteString(fmt.Sprintf(outputContract, count))
	return sb.String()
}

// BuildCompactPrompt builds the terse prompt used by the batch worker
func BuildCompactPrompt(title, content string, count int, difficulty domain.Difficulty) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d true/false statements, %s difficulty, topic: %s.", count, difficulty, title))
	if content != "" {
		sb.WriteString("\nSource:\n")
		sb.WriteString(content)
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(outputContract, count))
	return sb.String()
}
