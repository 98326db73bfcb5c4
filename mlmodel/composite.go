package mlmodel

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/embedding"
	"go.viam.com/shapegen/head"
	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
)

func init() {
	Register("composite", func(ctx context.Context, p Params, logger golog.Logger) (Service, error) {
		m, err := NewComposite(ctx, p, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// CompositeAttributes are the model specific settings of a composite model.
type CompositeAttributes struct {
	LogitScale float64 `json:"logit_scale"`
	Reentrant  *bool   `json:"reentrant"`
}

// Composite chains a registered embedding and a registered head with seeded, untrained
// weights. It sees the last two layers of a sequence and produces logits for the deepest
// one; rows of shallower tokens are zero.
type Composite struct {
	name       string
	dim        int
	numVocab   int
	maxTokens  int
	scale      float64
	reentrant  bool
	compressor embedding.Compressor
	head       head.Head
	logger     golog.Logger
}

// NewComposite builds a composite model.
func NewComposite(ctx context.Context, p Params, logger golog.Logger) (*Composite, error) {
	attrs := CompositeAttributes{LogitScale: 1}
	if err := p.Attributes.Decode(&attrs); err != nil {
		return nil, errors.Wrap(err, "invalid composite attributes")
	}
	if p.MaxTokens < 0 {
		return nil, errors.Errorf("max_tokens must not be negative, got %d", p.MaxTokens)
	}
	convSize := p.ConvSize
	if convSize == 0 {
		convSize = octree.Fanout(p.SpatialDim)
	}
	compressor, err := embedding.New(p.Embedding, embedding.Params{
		NumVocab:   p.NumVocab,
		EmbedDim:   p.EmbedDim,
		Resolution: p.MaxResolution,
		SpatialDim: p.SpatialDim,
		ConvSize:   convSize,
		Seed:       p.Seed,
	})
	if err != nil {
		return nil, err
	}
	h, err := head.New(p.Head, head.Params{
		NumVocab:   p.NumVocab,
		EmbedDim:   compressor.Dim(),
		SpatialDim: p.SpatialDim,
		ConvSize:   compressor.Ratio(),
		Seed:       p.Seed + 1,
	})
	if err != nil {
		return nil, err
	}
	if h.Expansion() != compressor.Ratio()*octree.Fanout(p.SpatialDim) {
		return nil, errors.Errorf("head expands joint rows into %d rows, embedding needs %d",
			h.Expansion(), compressor.Ratio()*octree.Fanout(p.SpatialDim))
	}
	reentrant := true
	if attrs.Reentrant != nil {
		reentrant = *attrs.Reentrant
	}
	logger.Debugw("created composite model", "embedding", p.Embedding, "head", p.Head, "seed", p.Seed)
	return &Composite{
		name:       p.Name,
		dim:        p.SpatialDim,
		numVocab:   p.NumVocab,
		maxTokens:  p.MaxTokens,
		scale:      attrs.LogitScale,
		reentrant:  reentrant,
		compressor: compressor,
		head:       h,
		logger:     logger,
	}, nil
}

// Metadata returns the model metadata.
func (m *Composite) Metadata(ctx context.Context) (Metadata, error) {
	return Metadata{
		ModelName: m.name,
		ModelType: "composite",
		NumVocab:  m.numVocab,
		MaxTokens: m.maxTokens,
		Reentrant: m.reentrant,
	}, nil
}

// ComputeLogits returns logits for the first MaxTokens positions of seq. The composite model
// carries no state between layers, so memory is ignored.
func (m *Composite) ComputeLogits(
	ctx context.Context,
	seq octree.Sequence,
	memory ml.Tensors,
	layer int,
) (*tensor.Dense, error) {
	ctx, span := trace.StartSpan(ctx, "mlmodel::composite::ComputeLogits")
	defer span.End()

	if seq.Dim != m.dim {
		return nil, errors.Errorf("model expects spatial dimension %d, got %d", m.dim, seq.Dim)
	}
	depth := seq.MaxDepth()
	if depth == 0 {
		return nil, errors.New("cannot compute logits of an empty sequence")
	}
	rows := seq.Len()
	if m.maxTokens > 0 && rows > m.maxTokens {
		rows = m.maxTokens
	}
	logits := ml.NewLogits(rows, m.numVocab+1)

	batch, err := embedding.BatchFromTensors(seq.Tensors())
	if err != nil {
		return nil, err
	}
	out, err := m.compressor.Forward(ctx, batch)
	if err != nil {
		return nil, err
	}
	slots, err := m.head.Forward(out.Embeddings[0])
	if err != nil {
		return nil, err
	}

	backing := logits.Data().([]float64)
	width := m.numVocab + 1
	fanout := octree.Fanout(m.dim)
	ratio := m.compressor.Ratio()
	start, _ := seq.LayerSpan(depth)
	parents := batch.Values(batch.Penultimate[0])
	cursor := start
	for p, value := range parents {
		if value != octree.Mixed {
			continue
		}
		base := (p/ratio)*m.head.Expansion() + (p%ratio)*fanout
		for c := 0; c < fanout && cursor < rows; c++ {
			row := slots.RawRowView(base + c)
			for v := 0; v < width; v++ {
				backing[cursor*width+v] = m.scale * row[v]
			}
			cursor++
		}
	}
	m.logger.Debugw("computed logits", "layer", layer, "depth", depth, "tokens", seq.Len(), "rows", rows)
	return logits, nil
}
