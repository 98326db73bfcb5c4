// Package generator fills the pending tokens of one octree layer by sampling their values
// chunk by chunk from a model.
package generator

import (
	"context"
	"math/rand/v2"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/mlmodel"
	"go.viam.com/shapegen/octree"
)

// Config configures a Generator.
type Config struct {
	// ChunkSize is the number of parent tokens advanced per model call.
	ChunkSize int
	// TokensPerGroup is the number of children sampled per mixed parent.
	TokensPerGroup int
	// LayerIndex is passed through to the model.
	LayerIndex int
}

// Generator samples the values of the deepest layer of a sequence.
type Generator struct {
	model  mlmodel.Service
	cfg    Config
	src    rand.Source
	logger golog.Logger
}

// New returns a generator drawing from src. The generator owns src; it must not be shared
// with other goroutines.
func New(model mlmodel.Service, cfg Config, src rand.Source, logger golog.Logger) (*Generator, error) {
	if model == nil {
		return nil, errors.New("generator needs a model")
	}
	if cfg.ChunkSize <= 0 || cfg.TokensPerGroup <= 0 {
		return nil, errors.Errorf("chunk_size and tokens_per_group must be positive, got %d and %d",
			cfg.ChunkSize, cfg.TokensPerGroup)
	}
	return &Generator{model: model, cfg: cfg, src: src, logger: logger}, nil
}

// Generate returns a copy of seq whose deepest layer holds sampled values. Each chunk of
// ChunkSize parents costs one model call and yields TokensPerGroup values per mixed parent in
// the chunk. When the model returns fewer logits than a chunk needs, generation stops: the
// returned sequence keeps the full depth and position arrays but its value array ends after
// the last sampled token, and truncated is true.
func (g *Generator) Generate(
	ctx context.Context,
	seq octree.Sequence,
	memory ml.Tensors,
	temperature float64,
) (out octree.Sequence, truncated bool, err error) {
	ctx, span := trace.StartSpan(ctx, "generator::Generate")
	defer span.End()

	out = seq.Clone()
	depth := out.MaxDepth()
	if depth == 0 {
		return out, false, errors.New("cannot generate values for an empty sequence")
	}
	if !out.Complete() {
		return out, false, errors.New("sequence already has unsampled tokens")
	}
	start, end := out.LayerSpan(depth)
	parents := out.Layer(depth - 1)
	if expected := octree.CountMixed(parents.Value) * g.cfg.TokensPerGroup; expected != end-start {
		return out, false, &octree.SequenceAlignmentError{Stage: "generation", Expected: expected, Actual: end - start}
	}

	sampled := 0
	for prev := 0; prev < parents.Len(); prev += g.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return out, false, err
		}
		chunk := parents.Value[prev:min(prev+g.cfg.ChunkSize, parents.Len())]
		expected := octree.CountMixed(chunk) * g.cfg.TokensPerGroup
		if expected == 0 {
			continue
		}

		logits, err := g.model.ComputeLogits(ctx, out, memory, g.cfg.LayerIndex)
		if err != nil {
			return out, false, errors.Wrap(err, "failed to compute logits")
		}
		rows, err := ml.LogitsRows(logits, start+sampled, start+sampled+expected)
		if err != nil {
			return out, false, err
		}
		if len(rows) != expected {
			out.Value = out.Value[:start+sampled]
			g.logger.Debugw("model capacity reached", "depth", depth, "sampled", sampled, "layer_tokens", end-start)
			return out, true, nil
		}
		for i, row := range rows {
			value, err := ml.SampleLogits(row, temperature, g.src)
			if err != nil {
				return out, false, errors.Wrapf(err, "token %d", start+sampled+i)
			}
			out.Value[start+sampled+i] = value
		}
		sampled += expected
	}
	g.logger.Debugw("sampled layer", "depth", depth, "tokens", sampled)
	return out, false, nil
}
