package octree

import (
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestSequenceTensors(t *testing.T) {
	seq := Expand(NewSequence(3))
	seq.Value = seq.Value[:5]

	value, depth, position := seq.Tensors()
	test.That(t, value.Shape(), test.ShouldResemble, tensor.Shape{1, 8})
	test.That(t, position.Shape(), test.ShouldResemble, tensor.Shape{1, 8, 3})
	test.That(t, value.Data(), test.ShouldResemble, []int{Mixed, Mixed, Mixed, Mixed, Mixed, Padding, Padding, Padding})
	test.That(t, depth.Data(), test.ShouldResemble, []int{1, 1, 1, 1, 1, 1, 1, 1})

	seqs, err := SequencesFromTensors(value, depth, position)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seqs, test.ShouldHaveLength, 1)
	test.That(t, seqs[0].Depth, test.ShouldResemble, seq.Depth)
	test.That(t, seqs[0].Position, test.ShouldResemble, seq.Position)
	test.That(t, seqs[0].Value, test.ShouldResemble, value.Data())
}

func TestSequencesFromTensors(t *testing.T) {
	value := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]int{2, 3, 1, 4, 0, 0}))
	depth := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]int{1, 1, 1, 1, 0, 0}))
	position := tensor.New(tensor.WithShape(2, 3, 2), tensor.WithBacking([]int{
		0, 0, 0, 1, 1, 0,
		1, 1, 0, 0, 0, 0,
	}))

	seqs, err := SequencesFromTensors(value, depth, position)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seqs, test.ShouldHaveLength, 2)
	test.That(t, seqs[0].Value, test.ShouldResemble, []int{2, 3, 1})
	test.That(t, seqs[1].Len(), test.ShouldEqual, 1)
	test.That(t, seqs[1].PositionAt(0), test.ShouldResemble, []int{1, 1})

	_, err = SequencesFromTensors(value, depth, tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]int, 6))))
	test.That(t, err, test.ShouldBeError)

	floats := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float64, 6)))
	_, err = SequencesFromTensors(floats, depth, position)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected []int but got []float64")
}

func TestGridFromTensor(t *testing.T) {
	g := mustGrid(t, 2, 2, []uint8{1, 2, 3, 4})
	tt := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]uint8{1, 2, 3, 4}))

	back, err := GridFromTensor(tt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Equal(g), test.ShouldBeTrue)

	_, err = GridFromTensor(tensor.New(tensor.WithShape(2, 4), tensor.WithBacking(make([]uint8, 8))))
	test.That(t, err, test.ShouldBeError)
	_, err = GridFromTensor(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(make([]float64, 4))))
	test.That(t, err, test.ShouldBeError)
}
