package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// streamOpenAI POSTs to {base}/chat/completions with stream=true and relays
// delta.content fragments from the SSE body until `data: [DONE]`.
func (s *Service) streamOpenAI(ctx context.Context, ch chan<- string, req StreamRequest, provider ResolvedProvider) {
	payload := map[string]any{
		"model":       provider.Model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"stream":      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		emit(ctx, ch, "Error: Request failed - "+err.Error())
		return
	}

	url := strings.TrimRight(provider.BaseURL, "/")
	if !strings.HasSuffix(url, "/chat/completions") {
		url += "/chat/completions"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		emit(ctx, ch, "Error: Request failed - "+err.Error())
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		emit(ctx, ch, "Error: Request failed - "+err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		emit(ctx, ch, fmt.Sprintf("Error: %d - %s", resp.StatusCode, strings.TrimSpace(string(errText))))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}
		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// tolerate malformed keep-alive payloads
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !emit(ctx, ch, choice.Delta.Content) {
				return
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		emit(ctx, ch, "Error: Request failed - "+err.Error())
	}
}
