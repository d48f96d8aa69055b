package models

import (
	"strings"

	"gorm.io/gorm"
)

// ProviderConfig is an operator-managed LLM backend: credentials, endpoint and
// the models it serves. At most one row should be marked default.
type ProviderConfig struct {
	gorm.Model
	Name         string     `gorm:"size:100;not null;uniqueIndex"`
	APIKey       string     `gorm:"size:255"`
	BaseURL      string     `gorm:"size:255"`
	Models       StringList `gorm:"type:text"` // models this provider declares support for
	DefaultModel string     `gorm:"size:100"`  // used when the provider is the system default
	IsDefault    bool       `gorm:"not null;default:false;index"`
}

// Supports reports whether the provider declares support for model.
func (p *ProviderConfig) Supports(model string) bool {
	for _, m := range p.Models {
		if strings.EqualFold(strings.TrimSpace(m), model) {
			return true
		}
	}
	return false
}

// Agent is an expert persona: a system prompt plus an optional preferred model.
type Agent struct {
	ID           string `gorm:"primaryKey;size:40"`
	Name         string `gorm:"size:100;not null"`
	SystemPrompt string `gorm:"type:text;not null"`
	Model        string `gorm:"size:100"`
}
