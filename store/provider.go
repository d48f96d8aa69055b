package store

import (
	"errors"
	"time"

	"bioassist/models"
	"bioassist/pkg/cache"

	"gorm.io/gorm"
)

// ProviderStore reads operator-managed provider configurations. Lookups are
// cached because resolution happens on every chat turn.
type ProviderStore struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
}

func NewProviderStore(db *gorm.DB, c *cache.Cache, ttl time.Duration) *ProviderStore {
	return &ProviderStore{db: db, cache: c, ttl: ttl}
}

const providersCacheKey = "providers:all"

func (s *ProviderStore) all() ([]models.ProviderConfig, error) {
	if v, ok := s.cache.Get(providersCacheKey); ok {
		if cfgs, ok := v.([]models.ProviderConfig); ok {
			return cfgs, nil
		}
	}
	var cfgs []models.ProviderConfig
	if err := s.db.Find(&cfgs).Error; err != nil {
		return nil, err
	}
	s.cache.Set(providersCacheKey, cfgs, s.ttl)
	return cfgs, nil
}

// FindForModel returns the stored provider that declares support for model,
// or nil when none does.
func (s *ProviderStore) FindForModel(model string) (*models.ProviderConfig, error) {
	cfgs, err := s.all()
	if err != nil {
		return nil, err
	}
	for i := range cfgs {
		if cfgs[i].Supports(model) {
			return &cfgs[i], nil
		}
	}
	return nil, nil
}

// Default returns the system-wide default provider, or nil when none is
// configured.
func (s *ProviderStore) Default() (*models.ProviderConfig, error) {
	cfgs, err := s.all()
	if err != nil {
		return nil, err
	}
	for i := range cfgs {
		if cfgs[i].IsDefault {
			return &cfgs[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops cached provider rows, for use after admin edits.
func (s *ProviderStore) Invalidate() {
	s.cache.Delete(providersCacheKey)
}

// AgentStore reads expert persona configurations.
type AgentStore struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
}

func NewAgentStore(db *gorm.DB, c *cache.Cache, ttl time.Duration) *AgentStore {
	return &AgentStore{db: db, cache: c, ttl: ttl}
}

// Get returns the agent with the given id, or nil when it does not exist.
func (s *AgentStore) Get(id string) (*models.Agent, error) {
	key := "agent:" + id
	if v, ok := s.cache.Get(key); ok {
		if a, ok := v.(*models.Agent); ok {
			return a, nil
		}
	}
	var agent models.Agent
	err := s.db.Where("id = ?", id).First(&agent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, &agent, s.ttl)
	return &agent, nil
}
