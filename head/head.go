// Package head maps joint embeddings back to per token value logits.
package head

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
	"go.viam.com/shapegen/registry"
)

// A Head expands every joint row into Expansion() rows of NumVocab()+1 logits, one per child
// slot of the penultimate tokens the joint row covers. Column 0 is padding.
type Head interface {
	Forward(joint *mat.Dense) (*mat.Dense, error)
	NumVocab() int
	Expansion() int
}

// Params configures a head.
type Params struct {
	NumVocab   int
	EmbedDim   int
	SpatialDim int
	// ConvSize is the number of penultimate tokens per joint row, 2^SpatialDim when zero.
	ConvSize int
	Seed     uint64
}

func (p Params) expansion() int {
	convSize := p.ConvSize
	if convSize == 0 {
		convSize = octree.Fanout(p.SpatialDim)
	}
	return convSize * octree.Fanout(p.SpatialDim)
}

func (p Params) validate() error {
	if p.NumVocab <= 0 || p.EmbedDim <= 0 {
		return errors.Errorf("invalid head size num_vocab=%d embed_dim=%d", p.NumVocab, p.EmbedDim)
	}
	if p.SpatialDim != 2 && p.SpatialDim != 3 {
		return errors.Errorf("unsupported spatial dimension %d", p.SpatialDim)
	}
	return nil
}

// A Constructor creates a head from params.
type Constructor func(p Params) (Head, error)

var heads = registry.New[Constructor]("head")

func init() {
	Register("linear", func(p Params) (Head, error) {
		h, err := NewLinear(p)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	Register("single_conv", func(p Params) (Head, error) {
		h, err := NewSingleConv(p)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

// Register registers a head constructor under name.
func Register(name string, constructor Constructor) {
	heads.Register(name, constructor)
}

// Lookup returns the registration for name or nil.
func Lookup(name string) *registry.Registration[Constructor] {
	return heads.Lookup(name)
}

// Registered returns the sorted names of all registered heads.
func Registered() []string {
	return heads.Names()
}

// New creates the head registered under name.
func New(name string, p Params) (Head, error) {
	constructor, err := heads.Constructor(name)
	if err != nil {
		return nil, err
	}
	return constructor(p)
}

// unfold reinterprets a [J, S*W] product as [J*S, W]; row j*S+s holds slot s of joint row j.
func unfold(m *mat.Dense, slots int) *mat.Dense {
	rows, cols := m.Dims()
	return mat.NewDense(rows*slots, cols/slots, mat.DenseCopyOf(m).RawMatrix().Data)
}

// Linear applies one linear map per child slot.
type Linear struct {
	numVocab  int
	expansion int
	embedDim  int
	weight    *mat.Dense
}

// NewLinear returns a linear head with seeded weights.
func NewLinear(p Params) (*Linear, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	expansion := p.expansion()
	return &Linear{
		numVocab:  p.NumVocab,
		expansion: expansion,
		embedDim:  p.EmbedDim,
		weight:    ml.NormalMatrix(expansion*(p.NumVocab+1), p.EmbedDim, ml.NewSource(p.Seed)),
	}, nil
}

// NumVocab returns the number of non padding values.
func (h *Linear) NumVocab() int {
	return h.numVocab
}

// Expansion returns the number of logits rows per joint row.
func (h *Linear) Expansion() int {
	return h.expansion
}

// Forward returns [J*Expansion, NumVocab+1] logits.
func (h *Linear) Forward(joint *mat.Dense) (*mat.Dense, error) {
	if _, cols := joint.Dims(); cols != h.embedDim {
		return nil, errors.Errorf("head expects rows of width %d, got %d", h.embedDim, cols)
	}
	var product mat.Dense
	product.Mul(joint, h.weight.T())
	return unfold(&product, h.expansion), nil
}

// SingleConv deconvolves every joint row into Expansion latent rows of half the width and
// applies one shared linear map to all of them.
type SingleConv struct {
	numVocab  int
	expansion int
	embedDim  int
	deconv    *mat.Dense
	linear    *mat.Dense
}

// NewSingleConv returns a single deconvolution head with seeded weights.
func NewSingleConv(p Params) (*SingleConv, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.EmbedDim < 2 {
		return nil, errors.Errorf("embed_dim %d too small to halve", p.EmbedDim)
	}
	expansion := p.expansion()
	src := ml.NewSource(p.Seed)
	return &SingleConv{
		numVocab:  p.NumVocab,
		expansion: expansion,
		embedDim:  p.EmbedDim,
		deconv:    ml.NormalMatrix(expansion*(p.EmbedDim/2), p.EmbedDim, src),
		linear:    ml.NormalMatrix(p.NumVocab+1, p.EmbedDim/2, src),
	}, nil
}

// NumVocab returns the number of non padding values.
func (h *SingleConv) NumVocab() int {
	return h.numVocab
}

// Expansion returns the number of logits rows per joint row.
func (h *SingleConv) Expansion() int {
	return h.expansion
}

// Forward returns [J*Expansion, NumVocab+1] logits.
func (h *SingleConv) Forward(joint *mat.Dense) (*mat.Dense, error) {
	if _, cols := joint.Dims(); cols != h.embedDim {
		return nil, errors.Errorf("head expects rows of width %d, got %d", h.embedDim, cols)
	}
	var latent mat.Dense
	latent.Mul(joint, h.deconv.T())
	hidden := unfold(&latent, h.expansion)
	ml.GELU(hidden)
	var logits mat.Dense
	logits.Mul(hidden, h.linear.T())
	return &logits, nil
}
