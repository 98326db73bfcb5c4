// Package sampler drives generation from a precondition up to a target resolution, one octree
// layer at a time.
package sampler

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/config"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/mlmodel"
	"go.viam.com/shapegen/octree"
	"go.viam.com/shapegen/registry"
)

// Request asks for one sample. A nil precondition starts from nothing.
type Request struct {
	Precondition           *octree.Grid
	PreconditionResolution int
	TargetResolution       int
	Temperature            float64
	Seed                   uint64
}

// Outcome tells how a sample ended.
type Outcome uint8

// A sample either reached its last layer, ran out of mixed tokens before that, or hit the
// model's context capacity mid layer. All three carry a valid grid.
const (
	OutcomeComplete = Outcome(iota)
	OutcomeResolved
	OutcomeTruncated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeResolved:
		return "resolved"
	case OutcomeTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Result is a finished sample. A truncated sequence has fewer values than tokens.
type Result struct {
	Grid     *octree.Grid
	Sequence octree.Sequence
	Outcome  Outcome
	Layers   int
}

// State is a step of the layer sampling loop.
type State uint8

// The loop starts in Init, alternates Expanding and Generating once per layer and ends in
// Done.
const (
	StateInit = State(iota)
	StateExpanding
	StateGenerating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateExpanding:
		return "Expanding"
	case StateGenerating:
		return "Generating"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Event is reported to an Observer whenever the loop enters a state.
type Event struct {
	State  State
	Depth  int
	Tokens int
	Mixed  int
}

// An Observer is called synchronously on every state change.
type Observer func(Event)

// A Sampler turns requests into grids.
type Sampler interface {
	Sample(ctx context.Context, req Request) (*Result, error)
}

// Option configures a sampler.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver reports every state change to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// A Constructor creates the sampler of an architecture.
type Constructor func(
	ctx context.Context,
	cfg *config.Config,
	model mlmodel.Service,
	logger golog.Logger,
	opts ...Option,
) (Sampler, error)

var samplers = registry.New[Constructor]("architecture")

// Register registers the sampler of an architecture.
func Register(architecture string, constructor Constructor) {
	samplers.Register(architecture, constructor)
}

// Lookup returns the registration for an architecture or nil.
func Lookup(architecture string) *registry.Registration[Constructor] {
	return samplers.Lookup(architecture)
}

// Registered returns the sorted names of all architectures with a sampler.
func Registered() []string {
	return samplers.Names()
}

// New creates the sampler for cfg.Architecture.
func New(
	ctx context.Context,
	cfg *config.Config,
	model mlmodel.Service,
	logger golog.Logger,
	opts ...Option,
) (Sampler, error) {
	constructor, err := samplers.Constructor(cfg.Architecture)
	if err != nil {
		return nil, err
	}
	return constructor(ctx, cfg, model, logger, opts...)
}

// serializedModel funnels every call of a model that is not reentrant through one lock.
type serializedModel struct {
	mlmodel.Service
	mu sync.Mutex
}

func (m *serializedModel) ComputeLogits(
	ctx context.Context,
	seq octree.Sequence,
	memory ml.Tensors,
	layer int,
) (*tensor.Dense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Service.ComputeLogits(ctx, seq, memory, layer)
}

// guardModel wraps model in a lock unless its metadata says it is reentrant.
func guardModel(ctx context.Context, model mlmodel.Service) (mlmodel.Service, error) {
	md, err := model.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	if md.Reentrant {
		return model, nil
	}
	return &serializedModel{Service: model}, nil
}
