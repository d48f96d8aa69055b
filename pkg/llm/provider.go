package llm

import "strings"

// Provider is the closed set of streaming backends.
type Provider int

const (
	OpenAICompatible Provider = iota
	Anthropic
	Mock
)

func (p Provider) String() string {
	switch p {
	case Anthropic:
		return "anthropic"
	case Mock:
		return "mock"
	default:
		return "openai-compatible"
	}
}

// ResolvedProvider is the outcome of provider resolution. An empty or "mock"
// APIKey is a valid result: the engine degrades to Mock Mode so the system
// stays runnable without live credentials.
type ResolvedProvider struct {
	APIKey       string
	BaseURL      string
	ProviderName string
	Model        string
}

// Backend maps a resolved config onto one provider variant. Anthropic wins
// when the provider name, base URL or model mention anthropic/claude; an
// unusable key forces Mock regardless of routing.
func (r ResolvedProvider) Backend() Provider {
	if r.APIKey == "" || r.APIKey == "mock" {
		return Mock
	}
	if r.isAnthropic() {
		return Anthropic
	}
	return OpenAICompatible
}

func (r ResolvedProvider) isAnthropic() bool {
	name := strings.ToLower(r.ProviderName)
	base := strings.ToLower(r.BaseURL)
	model := strings.ToLower(r.Model)
	return strings.Contains(name, "anthropic") ||
		strings.Contains(base, "anthropic") ||
		strings.Contains(model, "anthropic") ||
		strings.HasPrefix(model, "claude-")
}

// mockLabel names the provider the mock stands in for, so offline output
// still tells the operator which backend was routed to.
func (r ResolvedProvider) mockLabel() string {
	if r.isAnthropic() {
		return "Anthropic Claude"
	}
	return "Mock LLM"
}
