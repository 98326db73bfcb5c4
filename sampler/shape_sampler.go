package sampler

import (
	"context"

	"github.com/edaniels/golog"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/mlmodel"
	"go.viam.com/shapegen/octree"
)

// RandomPreconditionSide bounds the side of the random grid SampleRandom starts from.
const RandomPreconditionSide = 16

// RandomPreconditionResolution is the resolution SampleRandom encodes its random grid at.
const RandomPreconditionResolution = 2

// ShapeSampler is the front door for sampling shapes from a config: it builds the model and
// the architecture's sampler and fills requests from config defaults.
type ShapeSampler struct {
	cfg     *config.Config
	model   mlmodel.Service
	sampler Sampler
	logger  golog.Logger
}

// NewShapeSampler builds a shape sampler. A nil model is built from the config's model
// registry entry.
func NewShapeSampler(
	ctx context.Context,
	cfg *config.Config,
	model mlmodel.Service,
	logger golog.Logger,
	opts ...Option,
) (*ShapeSampler, error) {
	if model == nil {
		var err error
		if model, err = mlmodel.New(ctx, mlmodel.ParamsFromConfig(cfg), logger); err != nil {
			return nil, err
		}
	}
	s, err := New(ctx, cfg, model, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &ShapeSampler{cfg: cfg, model: model, sampler: s, logger: logger}, nil
}

// Model returns the model the sampler drives.
func (s *ShapeSampler) Model() mlmodel.Service {
	return s.model
}

// SamplePreconditioned samples a shape at targetResolution starting from precondition
// encoded at preconditionResolution. A nil precondition starts from nothing.
func (s *ShapeSampler) SamplePreconditioned(
	ctx context.Context,
	precondition *octree.Grid,
	preconditionResolution, targetResolution int,
	temperature float64,
) (*Result, error) {
	return s.sampler.Sample(ctx, Request{
		Precondition:           precondition,
		PreconditionResolution: preconditionResolution,
		TargetResolution:       targetResolution,
		Temperature:            temperature,
		Seed:                   s.cfg.Seed,
	})
}

// SampleRandom samples a shape at targetResolution from a random binary grid of side
// min(16, targetResolution), encoded at resolution 2.
func (s *ShapeSampler) SampleRandom(ctx context.Context, targetResolution int, temperature float64) (*Result, error) {
	if err := octree.CheckResolution(targetResolution, 0); err != nil {
		return nil, err
	}
	precondition, err := RandomGrid(s.cfg.SpatialDim, min(RandomPreconditionSide, targetResolution), s.cfg.Seed)
	if err != nil {
		return nil, err
	}
	return s.SamplePreconditioned(ctx, precondition, min(RandomPreconditionResolution, precondition.Side), targetResolution, temperature)
}

// SampleMany samples count shapes from the same precondition, each with its own seed.
func (s *ShapeSampler) SampleMany(
	ctx context.Context,
	count int,
	precondition *octree.Grid,
	preconditionResolution, targetResolution int,
	temperature float64,
) ([]*Result, error) {
	reqs := make([]Request, count)
	for i := range reqs {
		reqs[i] = Request{
			Precondition:           precondition,
			PreconditionResolution: preconditionResolution,
			TargetResolution:       targetResolution,
			Temperature:            temperature,
			Seed:                   s.cfg.Seed + uint64(i),
		}
	}
	return SampleBatch(ctx, s.sampler, reqs)
}

// RandomGrid returns a grid of random classes 0 and 1.
func RandomGrid(dim, side int, seed uint64) (*octree.Grid, error) {
	g, err := octree.NewGrid(dim, side)
	if err != nil {
		return nil, err
	}
	src := ml.NewSource(seed)
	for i := range g.Data {
		g.Data[i] = uint8(src.Uint64() & 1)
	}
	return g, nil
}
