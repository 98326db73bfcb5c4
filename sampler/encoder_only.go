package sampler

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/generator"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/mlmodel"
	"go.viam.com/shapegen/octree"
)

func init() {
	Register("encoder_only", func(
		ctx context.Context,
		cfg *config.Config,
		model mlmodel.Service,
		logger golog.Logger,
		opts ...Option,
	) (Sampler, error) {
		s, err := NewLayerSampler(ctx, cfg, model, logger, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// LayerSampler is the sampler of the encoder only architecture: a single model predicts every
// layer from the sequence so far. It is safe for concurrent use; every call to Sample owns
// its sequence and random source.
type LayerSampler struct {
	model          mlmodel.Service
	spatialDim     int
	maxResolution  int
	chunkSize      int
	tokensPerGroup int
	observer       Observer
	logger         golog.Logger
}

// NewLayerSampler returns an encoder only sampler for cfg, which must have been ensured.
func NewLayerSampler(
	ctx context.Context,
	cfg *config.Config,
	model mlmodel.Service,
	logger golog.Logger,
	opts ...Option,
) (*LayerSampler, error) {
	if model == nil {
		return nil, errors.New("sampler needs a model")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	guarded, err := guardModel(ctx, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model metadata")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	chunkSize, tokensPerGroup := cfg.ChunkSize, cfg.TokensPerGroup
	if chunkSize == 0 {
		chunkSize = octree.Fanout(cfg.SpatialDim)
	}
	if tokensPerGroup == 0 {
		tokensPerGroup = octree.Fanout(cfg.SpatialDim)
	}
	return &LayerSampler{
		model:          guarded,
		spatialDim:     cfg.SpatialDim,
		maxResolution:  cfg.MaxResolution,
		chunkSize:      chunkSize,
		tokensPerGroup: tokensPerGroup,
		observer:       o.observer,
		logger:         logger,
	}, nil
}

func (s *LayerSampler) emit(state State, seq octree.Sequence) {
	if s.observer == nil {
		return
	}
	s.observer(Event{
		State:  state,
		Depth:  seq.MaxDepth(),
		Tokens: seq.Len(),
		Mixed:  octree.CountMixed(octree.ParentLayer(seq).Value),
	})
}

func (s *LayerSampler) checkRequest(req Request) error {
	if err := octree.CheckResolution(req.TargetResolution, 0); err != nil {
		return errors.Wrap(err, "target resolution")
	}
	if req.Precondition == nil {
		return nil
	}
	if req.Precondition.Dim != s.spatialDim {
		return errors.Errorf("precondition is %dD, sampler is %dD", req.Precondition.Dim, s.spatialDim)
	}
	if err := octree.CheckResolution(req.PreconditionResolution, req.Precondition.Side); err != nil {
		return errors.Wrap(err, "precondition resolution")
	}
	if req.PreconditionResolution > req.TargetResolution {
		return errors.Wrap(&octree.InvalidResolutionError{
			Resolution: req.PreconditionResolution,
			Limit:      req.TargetResolution,
			Reason:     "exceeds target resolution",
		}, "precondition resolution")
	}
	return nil
}

// Sample runs the layer loop for one request.
func (s *LayerSampler) Sample(ctx context.Context, req Request) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "sampler::encoder_only::Sample")
	defer span.End()

	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	seq := octree.NewSequence(s.spatialDim)
	if req.Precondition != nil {
		var err error
		if seq, err = octree.Encode(req.Precondition, req.PreconditionResolution); err != nil {
			return nil, err
		}
	}
	s.emit(StateInit, seq)

	gen, err := generator.New(s.model, generator.Config{
		ChunkSize:      s.chunkSize,
		TokensPerGroup: s.tokensPerGroup,
	}, ml.NewSource(req.Seed), s.logger)
	if err != nil {
		return nil, err
	}

	curLayer := seq.MaxDepth()
	maxLayer := octree.Log2(min(req.TargetResolution, s.maxResolution))
	outcome := OutcomeComplete
	layers := 0
	for layer := curLayer; layer < maxLayer; layer++ {
		s.emit(StateExpanding, seq)
		next := octree.Expand(seq)
		if next.Len() == 0 {
			outcome = OutcomeResolved
			break
		}
		seq = seq.Concat(next)

		s.emit(StateGenerating, seq)
		var truncated bool
		if seq, truncated, err = s.generateLayer(ctx, gen, seq, req.Temperature); err != nil {
			return nil, errors.Wrapf(err, "failed to sample layer %d", layer+1)
		}
		layers++
		if truncated {
			outcome = OutcomeTruncated
			break
		}
	}
	s.emit(StateDone, seq)

	g, err := octree.Decode(seq, req.TargetResolution)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("sampled shape",
		"outcome", outcome.String(),
		"start_depth", curLayer,
		"depth", seq.MaxDepth(),
		"tokens", seq.Len(),
		"target_resolution", req.TargetResolution,
	)
	return &Result{Grid: g, Sequence: seq, Outcome: outcome, Layers: layers}, nil
}

func (s *LayerSampler) generateLayer(
	ctx context.Context,
	gen *generator.Generator,
	seq octree.Sequence,
	temperature float64,
) (octree.Sequence, bool, error) {
	ctx, span := trace.StartSpan(ctx, "sampler::encoder_only::layer")
	defer span.End()
	span.AddAttributes(
		trace.Int64Attribute("depth", int64(seq.MaxDepth())),
		trace.Int64Attribute("tokens", int64(seq.Len())),
	)
	return gen.Generate(ctx, seq, nil, temperature)
}
