package settings

import (
	"context"
	"errors"
	"strings"
)

// ErrKeyRequired indicates a blank setting key.
var ErrKeyRequired = errors.New("settings: key is required")

// RepositoryPort abstracts the key-value store.
type RepositoryPort interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
	InsertMissing(ctx context.Context, defaults map[string]string) error
}

// Service exposes the flat key-value configuration store.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one setting value.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrKeyRequired
	}
	return s.repo.Get(ctx, key)
}

// Set upserts one setting value.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	return s.repo.Set(ctx, key, value)
}

// All returns every setting as a map.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.repo.All(ctx)
}

// InitializeDefaults inserts the given defaults for keys that do not exist
// yet. Existing values are never overwritten.
func (s *Service) InitializeDefaults(ctx context.Context, defaults map[string]string) error {
	if len(defaults) == 0 {
		return nil
	}
	return s.repo.InsertMissing(ctx, defaults)
}
