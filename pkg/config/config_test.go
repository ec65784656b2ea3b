package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "EMBEDDING_BACKENDS",
		"RELEVANCE_POLICY", "CHAT_TIMEOUT", "SIMILARITY_THRESHOLD",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Equal(t, []string{"openai", "lexical", "hash"}, cfg.EmbeddingBackends)
	assert.Equal(t, PolicyAnyChunk, cfg.RelevancePolicy)
	assert.Equal(t, 2*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, 0.3, cfg.SimilarityThreshold)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "10")
	t.Setenv("EMBEDDING_BACKENDS", "lexical, hash")
	t.Setenv("RELEVANCE_POLICY", "always")

	cfg := Load()
	assert.Equal(t, 50, cfg.DBMaxOpenConns)
	assert.Equal(t, 10, cfg.DBMaxIdleConns)
	assert.Equal(t, []string{"lexical", "hash"}, cfg.EmbeddingBackends)
	assert.Equal(t, PolicyAlways, cfg.RelevancePolicy)
}
