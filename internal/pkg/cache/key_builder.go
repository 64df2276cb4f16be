package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	components []keyComponent
	logger     *zap.Logger
}

type keyComponent struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}

// NewCacheKeyBuilder creates a new cache key builder
func NewCacheKeyBuilder(logger *zap.Logger) *CacheKeyBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheKeyBuilder{
		components: make([]keyComponent, 0, 8),
		logger:     logger,
	}
}

// Add adds a component to the cache key
func (b *CacheKeyBuilder) Add(key string, value any) *CacheKeyBuilder {
	b.components = append(b.components, keyComponent{Key: key, Value: value})
	return b
}

// AddText adds free text, normalized for case and surrounding space.
func (b *CacheKeyBuilder) AddText(key, text string) *CacheKeyBuilder {
	return b.Add(key, strings.ToLower(strings.Join(strings.Fields(text), " ")))
}

// AddLocation adds a point rounded to roughly 100 m.
func (b *CacheKeyBuilder) AddLocation(lat, lng float64) *CacheKeyBuilder {
	return b.Add("loc", fmt.Sprintf("%.3f,%.3f", lat, lng))
}

// Build generates the final cache key as a hex digest.
func (b *CacheKeyBuilder) Build() (string, error) {
	jsonBytes, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}
	hash := sha256.Sum256(jsonBytes)
	key := hex.EncodeToString(hash[:16])

	b.logger.Debug("Cache key built",
		zap.String("key", key),
		zap.String("components", string(jsonBytes)),
	)
	return key, nil
}

// BuildOrDefault builds the cache key, returns empty string on error
func (b *CacheKeyBuilder) BuildOrDefault() string {
	key, err := b.Build()
	if err != nil {
		b.logger.Error("Failed to build cache key", zap.Error(err))
		return ""
	}
	return key
}
