package llm

import (
	"log"
	"strings"

	"bioassist/models"
	"bioassist/pkg/config"
)

// ProviderSource is the stored-configuration side of resolution.
// *store.ProviderStore satisfies it.
type ProviderSource interface {
	FindForModel(model string) (*models.ProviderConfig, error)
	Default() (*models.ProviderConfig, error)
}

// Resolver decides which backend, credentials and model serve a request.
// Resolve never fails: store errors fall through to env-var defaults.
type Resolver struct {
	providers ProviderSource
}

func NewResolver(providers ProviderSource) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve picks, in priority order: a stored provider declaring support for
// model; the stored system default with model substituted; env-var defaults
// chosen by a model-name heuristic (claude- means Anthropic).
func (r *Resolver) Resolve(model string) ResolvedProvider {
	if r.providers != nil {
		cfg, err := r.providers.FindForModel(model)
		if err != nil {
			log.Printf("[llm] provider lookup failed, falling back to env: %v", err)
		} else if cfg != nil && cfg.APIKey != "" {
			return ResolvedProvider{
				APIKey:       cfg.APIKey,
				BaseURL:      cfg.BaseURL,
				ProviderName: cfg.Name,
				Model:        model,
			}
		}

		def, err := r.providers.Default()
		if err != nil {
			log.Printf("[llm] default provider lookup failed, falling back to env: %v", err)
		} else if def != nil && def.APIKey != "" {
			return ResolvedProvider{
				APIKey:       def.APIKey,
				BaseURL:      def.BaseURL,
				ProviderName: def.Name,
				Model:        model,
			}
		}
	}

	if strings.HasPrefix(model, "claude-") {
		return ResolvedProvider{
			APIKey:       config.AnthropicAPIKey,
			BaseURL:      config.AnthropicBaseURL,
			ProviderName: "Anthropic (env)",
			Model:        model,
		}
	}
	return ResolvedProvider{
		APIKey:       config.OpenAIAPIKey,
		BaseURL:      config.OpenAIBaseURL,
		ProviderName: "OpenAI (env)",
		Model:        model,
	}
}

// DefaultModel returns the model to use when a request names none: the
// stored default provider's model if any, else the configured fallback.
func (r *Resolver) DefaultModel() string {
	if r.providers != nil {
		def, err := r.providers.Default()
		if err == nil && def != nil && def.DefaultModel != "" {
			return def.DefaultModel
		}
		if err != nil {
			log.Printf("[llm] default model lookup failed: %v", err)
		}
	}
	return config.DefaultModel
}
