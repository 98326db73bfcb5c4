package inject

import (
	"context"
	"sync/atomic"

	"gorgonia.org/tensor"

	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/mlmodel"
	"go.viam.com/shapegen/octree"
)

// MLModel is an injected model.
type MLModel struct {
	mlmodel.Service
	ComputeLogitsFunc func(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error)
	MetadataFunc      func(ctx context.Context) (mlmodel.Metadata, error)
	calls             atomic.Int64
}

// ComputeLogits calls the injected ComputeLogits or the real version.
func (m *MLModel) ComputeLogits(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error) {
	m.calls.Add(1)
	if m.ComputeLogitsFunc == nil {
		return m.Service.ComputeLogits(ctx, seq, memory, layer)
	}
	return m.ComputeLogitsFunc(ctx, seq, memory, layer)
}

// Metadata calls the injected Metadata or the real version.
func (m *MLModel) Metadata(ctx context.Context) (mlmodel.Metadata, error) {
	if m.MetadataFunc == nil {
		return m.Service.Metadata(ctx)
	}
	return m.MetadataFunc(ctx)
}

// Calls returns how many times ComputeLogits was called.
func (m *MLModel) Calls() int {
	return int(m.calls.Load())
}

// NewConstantModel returns a model that, for the first capacity positions of any sequence
// (all of them when capacity is 0), puts all its logit mass on value.
func NewConstantModel(numVocab, capacity, value int) *MLModel {
	return &MLModel{
		ComputeLogitsFunc: func(ctx context.Context, seq octree.Sequence, memory ml.Tensors, layer int) (*tensor.Dense, error) {
			vals, _, _ := seq.Tensors()
			rows := vals.Shape()[1]
			if capacity > 0 && rows > capacity {
				rows = capacity
			}
			logits := ml.NewLogits(rows, numVocab+1)
			backing := logits.Data().([]float64)
			for r := 0; r < rows; r++ {
				backing[r*(numVocab+1)+value] = 100
			}
			return logits, nil
		},
		MetadataFunc: func(ctx context.Context) (mlmodel.Metadata, error) {
			return mlmodel.Metadata{ModelName: "constant", NumVocab: numVocab, MaxTokens: capacity}, nil
		},
	}
}
