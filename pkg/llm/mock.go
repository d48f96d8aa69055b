package llm

import (
	"context"
	"fmt"
	"time"
)

const mockDelayPerRune = 5 * time.Millisecond

// mockResponse is a deterministic function of the last user message, which
// keeps offline behavior observable and testable.
func mockResponse(messages []Message, label string) string {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "system" {
			last = messages[i].Content
			break
		}
	}
	return fmt.Sprintf(
		"[%s] Received your message: %q. No API key is configured, so this is a simulated response.\n\nConfigure a provider to connect a real model.",
		label, last,
	)
}

// streamMock yields the canned response rune by rune with a small artificial
// delay, mimicking a live token stream.
func (s *Service) streamMock(ctx context.Context, ch chan<- string, messages []Message, label string) {
	for _, r := range mockResponse(messages, label) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(mockDelayPerRune):
		}
		if !emit(ctx, ch, string(r)) {
			return
		}
	}
}
