package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := Config{}
	c.Embedding.Model = "text-embedding-3-small"
	c.VectorIndex.IndexName = "regulations-v1"
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := validConfig()

	assert.Equal(t, 1000, c.Chunking.MaxSize)
	assert.Equal(t, 100, c.Chunking.Overlap)
	assert.Equal(t, 1536, c.Embedding.Dimensions)
	assert.Equal(t, "cosine", c.VectorIndex.Metric)
	assert.Equal(t, "regulations", c.VectorIndex.Namespace)
	assert.Equal(t, 60, c.VectorIndex.ReadyMaxAttempts)
	assert.Equal(t, 10, c.VectorIndex.SettleMaxAttempts)
	assert.Equal(t, "Spanish", c.LLM.Prompt.TargetLanguage)
	assert.Equal(t, 10, c.LLM.Prompt.TopK)
}

func TestValidateOK(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
}

func TestValidateOverlapTooLarge(t *testing.T) {
	c := validConfig()
	c.Chunking.Overlap = 1000
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestValidateNegativeOverlap(t *testing.T) {
	c := validConfig()
	c.Chunking.Overlap = -1
	require.Error(t, c.Validate())
}

func TestValidateBadMetric(t *testing.T) {
	c := validConfig()
	c.VectorIndex.Metric = "euclidean"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "euclidean")
}

func TestValidateMissingModel(t *testing.T) {
	c := validConfig()
	c.Embedding.Model = ""
	require.Error(t, c.Validate())
}

func TestValidateMissingIndexName(t *testing.T) {
	c := validConfig()
	c.VectorIndex.IndexName = ""
	require.Error(t, c.Validate())
}

func TestValidateBadDimensions(t *testing.T) {
	c := validConfig()
	c.Embedding.Dimensions = -3
	require.Error(t, c.Validate())
}
