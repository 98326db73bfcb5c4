package head

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/shapegen/utils"
)

func TestHeads(t *testing.T) {
	p := Params{NumVocab: 3, EmbedDim: 8, SpatialDim: 2, Seed: 3}
	joint := mat.NewDense(2, 8, []float64{
		1, 0, 0, 0, 0, 0, 0, 1,
		0, 1, 0, 1, 0, 1, 0, 1,
	})

	for _, name := range []string{"linear", "single_conv"} {
		t.Run(name, func(t *testing.T) {
			h, err := New(name, p)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, h.NumVocab(), test.ShouldEqual, 3)
			test.That(t, h.Expansion(), test.ShouldEqual, 16)

			logits, err := h.Forward(joint)
			test.That(t, err, test.ShouldBeNil)
			rows, cols := logits.Dims()
			test.That(t, rows, test.ShouldEqual, 32)
			test.That(t, cols, test.ShouldEqual, 4)

			// each joint row only feeds its own slots
			first, err := h.Forward(mat.DenseCopyOf(joint.Slice(0, 1, 0, 8)))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, mat.EqualApprox(first, logits.Slice(0, 16, 0, 4), 1e-12), test.ShouldBeTrue)

			_, err = h.Forward(mat.NewDense(1, 4, nil))
			test.That(t, err, test.ShouldBeError)
		})
	}
}

func TestLinearSlots(t *testing.T) {
	h, err := NewLinear(Params{NumVocab: 2, EmbedDim: 2, SpatialDim: 2, ConvSize: 1, Seed: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Expansion(), test.ShouldEqual, 4)

	logits, err := h.Forward(mat.NewDense(1, 2, []float64{1, 0}))
	test.That(t, err, test.ShouldBeNil)
	// slot s, value v comes from weight row s*3+v
	for s := 0; s < 4; s++ {
		for v := 0; v < 3; v++ {
			test.That(t, logits.At(s, v), test.ShouldAlmostEqual, h.weight.At(s*3+v, 0))
		}
	}
}

func TestHeadRegistry(t *testing.T) {
	test.That(t, Registered(), test.ShouldResemble, []string{"linear", "single_conv"})
	_, err := New("single_conv_A", Params{NumVocab: 3, EmbedDim: 8, SpatialDim: 2})
	test.That(t, utils.IsUnsupportedConfiguration(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "known: linear, single_conv")

	_, err = New("linear", Params{NumVocab: 3, EmbedDim: 8, SpatialDim: 4})
	test.That(t, err, test.ShouldBeError)
	_, err = NewSingleConv(Params{NumVocab: 0, EmbedDim: 8, SpatialDim: 2})
	test.That(t, err, test.ShouldBeError)
}
