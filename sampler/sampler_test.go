package sampler_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
	"go.viam.com/shapegen/sampler"
	"go.viam.com/shapegen/testutils/inject"
	"go.viam.com/shapegen/utils"
)

const numVocab = 3

func newConfig(t *testing.T, dim, maxResolution int) *config.Config {
	t.Helper()
	cfg := &config.Config{SpatialDim: dim, MaxResolution: maxResolution, Seed: 7}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	return cfg
}

func newSampler(t *testing.T, cfg *config.Config, model *inject.MLModel, opts ...sampler.Option) sampler.Sampler {
	t.Helper()
	s, err := sampler.New(context.Background(), cfg, model, golog.NewTestLogger(t), opts...)
	test.That(t, err, test.ShouldBeNil)
	return s
}

func TestSampleFromNothing(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	s := newSampler(t, cfg, model)

	res, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 4, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeComplete)
	test.That(t, res.Layers, test.ShouldEqual, 2)
	test.That(t, res.Grid.Side, test.ShouldEqual, 4)
	test.That(t, res.Grid.Data, test.ShouldHaveLength, 16)

	start, end := res.Sequence.LayerSpan(1)
	test.That(t, end-start, test.ShouldEqual, 4)
	start, end = res.Sequence.LayerSpan(2)
	test.That(t, end-start, test.ShouldBeLessThanOrEqualTo, 16)
	test.That(t, octree.CheckBranching(res.Sequence, false), test.ShouldBeNil)
	test.That(t, model.Calls(), test.ShouldEqual, 2)
}

func TestSampleAlreadyAtTarget(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	s := newSampler(t, cfg, model)

	precondition, err := octree.NewGrid(2, 2)
	test.That(t, err, test.ShouldBeNil)
	res, err := s.Sample(context.Background(), sampler.Request{
		Precondition:           precondition,
		PreconditionResolution: 2,
		TargetResolution:       2,
		Temperature:            1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Calls(), test.ShouldEqual, 0)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeComplete)
	test.That(t, res.Layers, test.ShouldEqual, 0)
	test.That(t, res.Grid.Equal(precondition), test.ShouldBeTrue)
}

func TestSampleResolvesEarly(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Empty)
	s := newSampler(t, cfg, model)

	res, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 8, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeResolved)
	test.That(t, res.Layers, test.ShouldEqual, 1)
	test.That(t, res.Sequence.MaxDepth(), test.ShouldEqual, 1)
	test.That(t, res.Grid.Histogram(), test.ShouldResemble, map[uint8]int{0: 64})
	test.That(t, model.Calls(), test.ShouldEqual, 1)
}

func TestSampleKeepsPreconditionLeaves(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Empty)
	s := newSampler(t, cfg, model)

	// one quadrant of class 1, one quadrant that needs refining
	precondition, err := octree.GridFromData(2, []uint8{
		1, 1, 0, 1,
		1, 1, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	test.That(t, err, test.ShouldBeNil)
	res, err := s.Sample(context.Background(), sampler.Request{
		Precondition:           precondition,
		PreconditionResolution: 2,
		TargetResolution:       4,
		Temperature:            1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeComplete)
	test.That(t, res.Layers, test.ShouldEqual, 1)
	test.That(t, res.Grid.At(0, 0), test.ShouldEqual, uint8(1))
	test.That(t, res.Grid.At(1, 1), test.ShouldEqual, uint8(1))
	test.That(t, res.Grid.At(0, 3), test.ShouldEqual, uint8(0))
	test.That(t, res.Grid.At(3, 3), test.ShouldEqual, uint8(0))
}

func TestSampleTruncates(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 6, octree.Mixed)
	s := newSampler(t, cfg, model)

	res, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 8, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeTruncated)
	test.That(t, res.Layers, test.ShouldEqual, 2)
	test.That(t, res.Sequence.Len(), test.ShouldEqual, 20)
	// the first depth 2 chunk already needs more rows than the model returns
	test.That(t, res.Sequence.Value, test.ShouldHaveLength, 4)
	test.That(t, octree.CheckBranching(res.Sequence, false), test.ShouldBeNil)
	test.That(t, res.Grid.Side, test.ShouldEqual, 8)
}

func TestSampleTruncatesMidLayer(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	cfg.ChunkSize = 1
	model := inject.NewConstantModel(numVocab, 12, octree.Mixed)
	s := newSampler(t, cfg, model)

	res, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 8, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeTruncated)
	test.That(t, res.Layers, test.ShouldEqual, 2)
	test.That(t, res.Sequence.Len(), test.ShouldEqual, 20)

	start, end := res.Sequence.LayerSpan(2)
	sampled := len(res.Sequence.Value) - start
	test.That(t, sampled, test.ShouldEqual, 8)
	test.That(t, sampled, test.ShouldBeLessThan, end-start)
	test.That(t, res.Sequence.Value[start:], test.ShouldResemble, []int{2, 2, 2, 2, 2, 2, 2, 2})
	test.That(t, octree.CheckBranching(res.Sequence, false), test.ShouldBeNil)
	test.That(t, model.Calls(), test.ShouldEqual, 4)
}

func TestSampleCapsAtMaxResolution(t *testing.T) {
	cfg := newConfig(t, 2, 4)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	s := newSampler(t, cfg, model)

	res, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 16, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeComplete)
	test.That(t, res.Sequence.MaxDepth(), test.ShouldEqual, 2)
	test.That(t, res.Grid.Side, test.ShouldEqual, 16)
}

func TestSampleObserver(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	var states []string
	s := newSampler(t, cfg, model, sampler.WithObserver(func(e sampler.Event) {
		states = append(states, e.State.String())
	}))

	_, err := s.Sample(context.Background(), sampler.Request{TargetResolution: 4, Temperature: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, states, test.ShouldResemble, []string{
		"Init", "Expanding", "Generating", "Expanding", "Generating", "Done",
	})
}

func TestSampleInvalidRequests(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	s := newSampler(t, cfg, model)

	small, err := octree.NewGrid(2, 2)
	test.That(t, err, test.ShouldBeNil)
	large, err := octree.NewGrid(2, 8)
	test.That(t, err, test.ShouldBeNil)
	cube, err := octree.NewGrid(3, 2)
	test.That(t, err, test.ShouldBeNil)

	for _, req := range []sampler.Request{
		{TargetResolution: 3},
		{TargetResolution: 0},
		{Precondition: small, PreconditionResolution: 4, TargetResolution: 4},
		{Precondition: small, PreconditionResolution: 3, TargetResolution: 4},
		{Precondition: large, PreconditionResolution: 8, TargetResolution: 4},
	} {
		_, err := s.Sample(context.Background(), req)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, octree.IsInvalidResolution(err), test.ShouldBeTrue)
	}

	_, err = s.Sample(context.Background(), sampler.Request{Precondition: cube, PreconditionResolution: 2, TargetResolution: 4})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, model.Calls(), test.ShouldEqual, 0)
}

func TestUnknownArchitecture(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	cfg.Architecture = "encoder_decoder"
	_, err := sampler.New(context.Background(), cfg, inject.NewConstantModel(numVocab, 0, 1), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, utils.IsUnsupportedConfiguration(err), test.ShouldBeTrue)
	test.That(t, sampler.Registered(), test.ShouldContain, "encoder_only")
}

func TestSampleBatchSerializesModel(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	constant := model.ComputeLogitsFunc
	var inFlight, maxInFlight atomic.Int64
	model.ComputeLogitsFunc = func(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if n <= seen || maxInFlight.CompareAndSwap(seen, n) {
				break
			}
		}
		return constant(ctx, seq, memory, layer)
	}
	s := newSampler(t, cfg, model)

	reqs := make([]sampler.Request, 8)
	for i := range reqs {
		reqs[i] = sampler.Request{TargetResolution: 8, Temperature: 1, Seed: uint64(i)}
	}
	results, err := sampler.SampleBatch(context.Background(), s, reqs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, len(reqs))
	for _, res := range results {
		test.That(t, res.Outcome, test.ShouldEqual, sampler.OutcomeComplete)
		test.That(t, res.Grid.Side, test.ShouldEqual, 8)
	}
	test.That(t, maxInFlight.Load(), test.ShouldEqual, int64(1))
	// one call for each of the first two layers and one per chunk of four parents after that
	test.That(t, model.Calls(), test.ShouldEqual, 6*len(reqs))
}

func TestSampleBatchReportsFailures(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	s := newSampler(t, cfg, inject.NewConstantModel(numVocab, 0, octree.Empty))

	results, err := sampler.SampleBatch(context.Background(), s, []sampler.Request{
		{TargetResolution: 4, Temperature: 1},
		{TargetResolution: 5, Temperature: 1},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "request 1")
	test.That(t, results[0], test.ShouldNotBeNil)
	test.That(t, results[1], test.ShouldBeNil)
}

func TestSampleSameSeedSameShape(t *testing.T) {
	cfg := newConfig(t, 2, 16)
	model := inject.NewConstantModel(numVocab, 0, octree.Mixed)
	model.ComputeLogitsFunc = func(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error) {
		// flat logits over every non padding value
		return ml.NewLogits(seq.Len(), numVocab+1), nil
	}
	s := newSampler(t, cfg, model)

	req := sampler.Request{TargetResolution: 8, Temperature: 1, Seed: 42}
	first, err := s.Sample(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	second, err := s.Sample(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Sequence, test.ShouldResemble, first.Sequence)
	test.That(t, second.Grid.Equal(first.Grid), test.ShouldBeTrue)
}

func TestShapeSamplerWithCompositeModel(t *testing.T) {
	cfg := newConfig(t, 2, 8)
	logger := golog.NewTestLogger(t)
	s, err := sampler.NewShapeSampler(context.Background(), cfg, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	md, err := s.Model().Metadata(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, md.NumVocab, test.ShouldEqual, numVocab)

	res, err := s.SampleRandom(context.Background(), 8, cfg.TemperatureOrDefault())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldBeIn, sampler.OutcomeComplete, sampler.OutcomeResolved)
	test.That(t, res.Grid.Side, test.ShouldEqual, 8)
	test.That(t, octree.CheckBranching(res.Sequence, false), test.ShouldBeNil)
	for class := range res.Grid.Histogram() {
		test.That(t, class, test.ShouldBeIn, uint8(0), uint8(1))
	}

	results, err := s.SampleMany(context.Background(), 3, nil, 0, 4, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 3)
	for _, res := range results {
		test.That(t, res.Grid.Side, test.ShouldEqual, 4)
	}
}

func TestRandomGrid(t *testing.T) {
	a, err := sampler.RandomGrid(3, 4, 9)
	test.That(t, err, test.ShouldBeNil)
	b, err := sampler.RandomGrid(3, 4, 9)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Equal(b), test.ShouldBeTrue)
	test.That(t, a.Data, test.ShouldHaveLength, 64)
	for _, v := range a.Data {
		test.That(t, v, test.ShouldBeLessThanOrEqualTo, uint8(1))
	}
}
