package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bioassist/models"
)

func drain(ch <-chan string) string {
	var b strings.Builder
	for frag := range ch {
		b.WriteString(frag)
	}
	return b.String()
}

func mockService() *Service {
	// no stored providers, no env keys resolved into the result
	r := NewResolver(&fakeProviders{
		def: &models.ProviderConfig{Name: "Offline", APIKey: "mock"},
	})
	return NewService(r, 5*time.Second)
}

func TestStreamMockDeterministic(t *testing.T) {
	s := mockService()
	req := StreamRequest{
		Messages: []Message{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "What is CRISPR?"},
		},
		Model: "gpt-4o",
	}

	first := drain(s.Stream(context.Background(), req))
	second := drain(s.Stream(context.Background(), req))

	if first != second {
		t.Fatalf("mock output not deterministic:\n%q\n%q", first, second)
	}
	if !strings.Contains(first, `"What is CRISPR?"`) {
		t.Errorf("mock output should echo the final user message, got %q", first)
	}
	if strings.Contains(first, "helpful assistant") {
		t.Errorf("mock output should ignore system messages, got %q", first)
	}
}

func TestStreamMockHonorsCancel(t *testing.T) {
	s := mockService()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Stream(ctx, StreamRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "gpt-4o",
	})
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		drain(ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func openAIService(baseURL string) *Service {
	r := NewResolver(&fakeProviders{
		def: &models.ProviderConfig{Name: "Test OpenAI", APIKey: "test-key", BaseURL: baseURL},
	})
	return NewService(r, 5*time.Second)
}

func TestStreamOpenAIRelaysDeltas(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Hel", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: not-json keepalive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	s := openAIService(srv.URL + "/v1")
	got := drain(s.Stream(context.Background(), StreamRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "gpt-4o",
	}))

	if got != "Hello world" {
		t.Errorf("stream = %q, want %q", got, "Hello world")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestStreamOpenAIUpstreamErrorBecomesFragment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := openAIService(srv.URL)
	got := drain(s.Stream(context.Background(), StreamRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "gpt-4o",
	}))

	if !strings.HasPrefix(got, "Error: 500 - ") {
		t.Errorf("got %q, want terminal Error: 500 fragment", got)
	}
	if !strings.Contains(got, "model overloaded") {
		t.Errorf("got %q, want upstream body included", got)
	}
}

func TestStreamOpenAIUnreachableHost(t *testing.T) {
	s := openAIService("http://127.0.0.1:1")
	got := drain(s.Stream(context.Background(), StreamRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "gpt-4o",
	}))

	if !strings.HasPrefix(got, "Error: Request failed - ") {
		t.Errorf("got %q, want transport error fragment", got)
	}
}
