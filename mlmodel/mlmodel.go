// Package mlmodel defines the boundary between the samplers and the sequence model that
// supplies token logits, and the registry models are constructed from.
package mlmodel

import (
	"context"

	"github.com/edaniels/golog"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
	"go.viam.com/shapegen/registry"
)

// A Service computes value logits for a token sequence.
type Service interface {
	// ComputeLogits returns a [T, NumVocab+1] tensor whose row i holds the logits of the
	// value of token i; column 0 is padding. T is smaller than the sequence length when the
	// sequence exceeds the model's context.
	ComputeLogits(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error)
	Metadata(ctx context.Context) (Metadata, error)
}

// Metadata describes a model.
type Metadata struct {
	ModelName string
	ModelType string // e.g. composite
	NumVocab  int
	MaxTokens int
	// Reentrant models may be called from several goroutines at once.
	Reentrant bool
}

// Params configures a model.
type Params struct {
	Name          string
	SpatialDim    int
	MaxResolution int
	NumVocab      int
	EmbedDim      int
	MaxTokens     int
	ConvSize      int
	Embedding     string
	Head          string
	Seed          uint64
	Attributes    config.AttributeMap
}

// ParamsFromConfig returns the model params of a sampler config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Name:          cfg.Model,
		SpatialDim:    cfg.SpatialDim,
		MaxResolution: cfg.MaxResolution,
		NumVocab:      cfg.NumVocab,
		EmbedDim:      cfg.EmbedDim,
		MaxTokens:     cfg.MaxTokens,
		ConvSize:      cfg.ConvSize,
		Embedding:     cfg.Embedding,
		Head:          cfg.Head,
		Seed:          cfg.Seed,
		Attributes:    cfg.Attributes,
	}
}

// A CreateService creates a model from params.
type CreateService func(ctx context.Context, p Params, logger golog.Logger) (Service, error)

var models = registry.New[CreateService]("model")

// Register registers a model constructor under name.
func Register(name string, constructor CreateService) {
	models.Register(name, constructor)
}

// Lookup returns the registration for name or nil.
func Lookup(name string) *registry.Registration[CreateService] {
	return models.Lookup(name)
}

// Registered returns the sorted names of all registered models.
func Registered() []string {
	return models.Names()
}

// New creates the model registered under p.Name.
func New(ctx context.Context, p Params, logger golog.Logger) (Service, error) {
	constructor, err := models.Constructor(p.Name)
	if err != nil {
		return nil, err
	}
	return constructor(ctx, p, logger)
}
