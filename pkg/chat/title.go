package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"bioassist/models"
	"bioassist/pkg/llm"
	"bioassist/pkg/utils"
)

const titleSystemPrompt = "You are a title generator. Summarize the user's question and the assistant's answer " +
	"into one concise conversation title. Requirements: at most 20 characters, output the title text only, " +
	"no surrounding quotes or punctuation."

// TitleGenerator turns a conversation's first turn into a short title via a
// second, non-streamed, low-temperature completion.
type TitleGenerator struct {
	engine   *llm.Service
	maxRunes int
}

func NewTitleGenerator(engine *llm.Service, maxRunes int) *TitleGenerator {
	return &TitleGenerator{engine: engine, maxRunes: maxRunes}
}

// Generate never fails: model errors are logged and the fallback — a
// truncated copy of the user message — is returned instead.
func (g *TitleGenerator) Generate(ctx context.Context, userMessage, assistantMessage, model string) string {
	prompt := []llm.Message{
		{Role: models.RoleSystem, Content: titleSystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf(
			"User question: %s\n\nAssistant answer: %s\n\nTitle:",
			utils.TruncateRunes(userMessage, 200),
			utils.TruncateRunes(assistantMessage, 300),
		)},
	}

	var b strings.Builder
	for fragment := range g.engine.Stream(ctx, llm.StreamRequest{
		Messages:    prompt,
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   40,
	}) {
		b.WriteString(fragment)
	}

	title := cleanTitle(b.String())
	if title == "" || strings.HasPrefix(title, "Error:") {
		log.Printf("[chat] title generation degraded (model=%s), using fallback", model)
		return fallbackTitle(userMessage)
	}
	return utils.TruncateRunes(title, g.maxRunes)
}

// cleanTitle strips surrounding quotes, brackets and whitespace the model
// tends to wrap titles in.
func cleanTitle(s string) string {
	return strings.Trim(s, "\"'`“”‘’«»《》「」\r\n\t ")
}

func fallbackTitle(userMessage string) string {
	if len([]rune(userMessage)) > 20 {
		return utils.TruncateRunes(userMessage, 20) + "..."
	}
	return userMessage
}
