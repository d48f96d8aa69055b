package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"bioassist/models"
)

// streamAnthropic relays text deltas from the Anthropic SDK's native
// streaming interface. Anthropic takes system prompts as a dedicated field,
// so system messages are extracted from the transcript first.
func (s *Service) streamAnthropic(ctx context.Context, ch chan<- string, req StreamRequest, provider ResolvedProvider) {
	opts := []option.RequestOption{
		option.WithAPIKey(provider.APIKey),
		option.WithHTTPClient(s.client),
	}
	if provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(provider.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case models.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(provider.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    msgs,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" && !emit(ctx, ch, delta.Text) {
					return
				}
			}
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		emit(ctx, ch, fmt.Sprintf("Error: Anthropic request failed - %v", err))
	}
}
