// Package config defines the shapegen configuration file and its validation.
package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/shapegen/octree"
)

// Defaults filled in by Ensure for fields left unset.
const (
	DefaultArchitecture = "encoder_only"
	DefaultEmbedding    = "substitution"
	DefaultHead         = "linear"
	DefaultModel        = "composite"
	DefaultNumVocab     = 3
	DefaultEmbedDim     = 16
	DefaultMaxTokens    = 4096
	DefaultTemperature  = 1.0
)

// Config describes a sampler together with the model it drives.
type Config struct {
	ConfigFilePath string `json:"-"`

	SpatialDim    int `json:"spatial_dim"`
	MaxResolution int `json:"max_resolution"`
	NumVocab      int `json:"num_vocab,omitempty"`
	EmbedDim      int `json:"embed_dim,omitempty"`
	MaxTokens     int `json:"max_tokens,omitempty"`
	ConvSize      int `json:"conv_size,omitempty"`

	Architecture string `json:"architecture,omitempty"`
	Embedding    string `json:"embedding,omitempty"`
	Head         string `json:"head,omitempty"`
	Model        string `json:"model,omitempty"`

	ChunkSize      int      `json:"chunk_size,omitempty"`
	TokensPerGroup int      `json:"tokens_per_group,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Seed           uint64   `json:"seed,omitempty"`

	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Ensure fills defaults and validates the config.
func (c *Config) Ensure() error {
	if c.NumVocab == 0 {
		c.NumVocab = DefaultNumVocab
	}
	if c.EmbedDim == 0 {
		c.EmbedDim = DefaultEmbedDim
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Architecture == "" {
		c.Architecture = DefaultArchitecture
	}
	if c.Embedding == "" {
		c.Embedding = DefaultEmbedding
	}
	if c.Head == "" {
		c.Head = DefaultHead
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		temperature := DefaultTemperature
		c.Temperature = &temperature
	}
	if c.SpatialDim == 2 || c.SpatialDim == 3 {
		if c.ConvSize == 0 {
			c.ConvSize = octree.Fanout(c.SpatialDim)
		}
		if c.ChunkSize == 0 {
			c.ChunkSize = c.ConvSize
		}
		if c.TokensPerGroup == 0 {
			c.TokensPerGroup = octree.Fanout(c.SpatialDim)
		}
	}
	return c.Validate("")
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	switch c.SpatialDim {
	case 0:
		return utils.NewConfigValidationFieldRequiredError(path, "spatial_dim")
	case 2, 3:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("spatial_dim must be 2 or 3, got %d", c.SpatialDim))
	}
	if c.MaxResolution == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_resolution")
	}
	if _, err := octree.CellCount(c.SpatialDim, c.MaxResolution); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "max_resolution"))
	}
	if c.NumVocab < octree.Mixed+1 || c.NumVocab > octree.MaxClass+octree.Mixed {
		return utils.NewConfigValidationError(path,
			errors.Errorf("num_vocab must be in [%d, %d], got %d", octree.Mixed+1, octree.MaxClass+octree.Mixed, c.NumVocab))
	}
	if c.EmbedDim <= 0 || c.EmbedDim%4 != 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("embed_dim must be a positive multiple of 4, got %d", c.EmbedDim))
	}
	if c.MaxTokens < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if c.ConvSize < 0 || c.ChunkSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("conv_size and chunk_size must not be negative"))
	}
	if c.TokensPerGroup != 0 && c.TokensPerGroup != octree.Fanout(c.SpatialDim) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("tokens_per_group must be %d for spatial_dim %d, got %d",
				octree.Fanout(c.SpatialDim), c.SpatialDim, c.TokensPerGroup))
	}
	if c.Temperature != nil && *c.Temperature < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("temperature must not be negative, got %v", *c.Temperature))
	}
	return nil
}

// TemperatureOrDefault returns the configured temperature.
func (c *Config) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}
