package llm

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Message is one chat turn handed to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest describes one completion call.
type StreamRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// Service streams chat completions from OpenAI-compatible, Anthropic and Mock
// backends behind one fragment-channel abstraction. One Service (and its
// pooled HTTP client) is shared by all concurrent requests; per-call state
// lives on the goroutine.
type Service struct {
	resolver *Resolver
	client   *http.Client
}

func NewService(resolver *Resolver, timeout time.Duration) *Service {
	return &Service{
		resolver: resolver,
		client:   &http.Client{Timeout: timeout},
	}
}

// Close releases pooled connections. Call it from the host's shutdown hook.
func (s *Service) Close() {
	s.client.CloseIdleConnections()
}

const defaultMaxTokens = 8192

// Stream resolves a provider for req.Model and streams text fragments on the
// returned channel. The channel is always closed when the stream ends.
// Upstream failures never escape as errors: they arrive as one terminal
// "Error: ..." fragment, because breaking an already-promised stream is worse
// than delivering an explanatory tail.
func (s *Service) Stream(ctx context.Context, req StreamRequest) <-chan string {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		provider := s.resolver.Resolve(req.Model)
		backend := provider.Backend()
		log.Printf("[llm] model=%s provider=%s backend=%s", req.Model, provider.ProviderName, backend)
		switch backend {
		case Mock:
			s.streamMock(ctx, ch, req.Messages, provider.mockLabel())
		case Anthropic:
			s.streamAnthropic(ctx, ch, req, provider)
		default:
			s.streamOpenAI(ctx, ch, req, provider)
		}
	}()
	return ch
}

// emit forwards one fragment unless the consumer is gone. Reports whether the
// caller should keep streaming.
func emit(ctx context.Context, ch chan<- string, fragment string) bool {
	select {
	case ch <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}
