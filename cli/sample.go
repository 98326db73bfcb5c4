package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/gridio"
	"go.viam.com/shapegen/octree"
	"go.viam.com/shapegen/sampler"
)

const (
	sampleStepConfig = "config"
	sampleStepModel  = "model"
	sampleStepSample = "sample"
	sampleStepWrite  = "write"
)

// SampleAction samples one or more shapes and writes them to disk.
func SampleAction(cCtx *cli.Context) error {
	logger := newLogger(cCtx)
	pm := NewProgressManager(cCtx.App.Writer, []*Step{
		{ID: sampleStepConfig, Message: "Loading config"},
		{ID: sampleStepModel, Message: "Building model"},
		{ID: sampleStepSample, Message: "Sampling", IndentLevel: 1},
		{ID: sampleStepWrite, Message: "Writing shapes"},
	}, WithProgressOutput(!cCtx.Bool(generalFlagQuiet)))
	defer pm.Stop()

	run := func(stepID string, fn func() error) error {
		if err := pm.Start(stepID); err != nil {
			return err
		}
		if err := fn(); err != nil {
			//nolint:errcheck
			_ = pm.Fail(stepID, err)
			return err
		}
		return pm.Complete(stepID)
	}

	ctx := cCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	target := cCtx.Int(sampleFlagResolution)

	var cfg *config.Config
	if err := run(sampleStepConfig, func() error {
		var err error
		cfg, err = loadConfig(ctx, cCtx, target)
		return err
	}); err != nil {
		return err
	}

	var precondition *octree.Grid
	preconditionResolution := cCtx.Int(sampleFlagPreconditionResolution)
	switch {
	case cCtx.IsSet(sampleFlagPrecondition) && cCtx.Bool(sampleFlagRandom):
		return errors.Errorf("--%s and --%s are mutually exclusive", sampleFlagPrecondition, sampleFlagRandom)
	case cCtx.IsSet(sampleFlagPrecondition):
		var err error
		if precondition, err = gridio.ReadFile(cCtx.String(sampleFlagPrecondition)); err != nil {
			return err
		}
	case cCtx.Bool(sampleFlagRandom):
		var err error
		side := min(sampler.RandomPreconditionSide, target)
		if precondition, err = sampler.RandomGrid(cfg.SpatialDim, side, cfg.Seed); err != nil {
			return err
		}
		preconditionResolution = min(preconditionResolution, side)
	}

	var shapes *sampler.ShapeSampler
	if err := run(sampleStepModel, func() error {
		var err error
		shapes, err = sampler.NewShapeSampler(ctx, cfg, nil, logger, sampler.WithObserver(func(e sampler.Event) {
			pm.UpdateText(fmt.Sprintf("   → Sampling: %s depth %d, %d tokens", e.State, e.Depth, e.Tokens))
		}))
		return err
	}); err != nil {
		return err
	}

	temperature := cfg.TemperatureOrDefault()
	if cCtx.IsSet(sampleFlagTemperature) {
		temperature = cCtx.Float64(sampleFlagTemperature)
	}
	count := cCtx.Int(sampleFlagCount)
	if count < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", sampleFlagCount, count)
	}

	var results []*sampler.Result
	if err := run(sampleStepSample, func() error {
		var err error
		results, err = shapes.SampleMany(ctx, count, precondition, preconditionResolution, target, temperature)
		return err
	}); err != nil {
		return err
	}

	output := cCtx.String(sampleFlagOutput)
	if output == "" {
		output = "shape" + gridio.DefaultExtension(cfg.SpatialDim)
	}
	var written []string
	if err := run(sampleStepWrite, func() error {
		for i, res := range results {
			path := output
			if len(results) > 1 {
				path = indexedPath(output, i)
			}
			if err := gridio.WriteFile(path, res.Grid); err != nil {
				return err
			}
			written = append(written, path)
		}
		return nil
	}); err != nil {
		return err
	}

	for i, res := range results {
		if res.Outcome == sampler.OutcomeTruncated {
			warningf(cCtx.App.ErrWriter, "%s was cut short by the model context (%d of %d tokens)",
				written[i], len(res.Sequence.Value), res.Sequence.Len())
		}
		printf(cCtx.App.Writer, "%s: %s after %d layers, %d tokens", written[i], res.Outcome, res.Layers, res.Sequence.Len())
	}
	return nil
}

// loadConfig reads the config file when one is given and otherwise builds a default config
// able to reach target.
func loadConfig(ctx context.Context, cCtx *cli.Context, target int) (*config.Config, error) {
	var cfg *config.Config
	if path := cCtx.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(ctx, path, newLogger(cCtx)); err != nil {
			return nil, err
		}
	} else {
		cfg = &config.Config{SpatialDim: cCtx.Int(sampleFlagDim), MaxResolution: target}
		if err := cfg.Ensure(); err != nil {
			return nil, err
		}
	}
	if cCtx.IsSet(sampleFlagSeed) {
		cfg.Seed = cCtx.Uint64(sampleFlagSeed)
	}
	return cfg, nil
}
