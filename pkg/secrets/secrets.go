// Package secrets resolves named secrets lazily and caches them for the
// process lifetime, so cold starts pay the lookup cost once.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Source resolves a named secret.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvSource reads secrets from environment variables and caches the result.
type EnvSource struct {
	prefix string

	mu    sync.Mutex
	cache map[string]string
}

// NewEnvSource builds an environment-backed secret source. An optional prefix
// is prepended to every lookup.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: strings.TrimSpace(prefix),
		cache:  map[string]string{},
	}
}

// Get resolves the named secret, consulting the per-process cache first.
func (s *EnvSource) Get(ctx context.Context, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("secret name is required")
	}
	key := s.prefix + trimmed

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %q is not set", key)
	}
	s.cache[key] = value
	return value, nil
}
