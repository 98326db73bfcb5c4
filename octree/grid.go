package octree

import (
	"fmt"

	"github.com/pkg/errors"
)

// Grid is a dense square (2D) or cubic (3D) array of small integer classes. Data is row major
// with the first axis varying slowest.
type Grid struct {
	Dim  int
	Side int
	Data []uint8
}

// MaxGridCells bounds the number of cells of any grid.
const MaxGridCells = 1 << 24

// CellCount returns side^dim. Side must be a power of two, dim 2 or 3 and the count at most
// MaxGridCells.
func CellCount(dim, side int) (int, error) {
	if dim != 2 && dim != 3 {
		return 0, errors.Errorf("unsupported spatial dimension %d, expected 2 or 3", dim)
	}
	if !IsPowerOfTwo(side) {
		return 0, newNotPowerOfTwoError(side)
	}
	size := 1
	for i := 0; i < dim; i++ {
		if size > MaxGridCells/side {
			return 0, &InvalidResolutionError{
				Resolution: side,
				Reason:     fmt.Sprintf("a %dD grid would exceed %d cells", dim, MaxGridCells),
			}
		}
		size *= side
	}
	return size, nil
}

// NewGrid returns a zeroed grid with CellCount(dim, side) cells.
func NewGrid(dim, side int) (*Grid, error) {
	size, err := CellCount(dim, side)
	if err != nil {
		return nil, err
	}
	return &Grid{Dim: dim, Side: side, Data: make([]uint8, size)}, nil
}

// GridFromData wraps data as a grid of the given dimension, inferring the side length.
func GridFromData(dim int, data []uint8) (*Grid, error) {
	if dim != 2 && dim != 3 {
		return nil, errors.Errorf("unsupported spatial dimension %d, expected 2 or 3", dim)
	}
	side := 1
	for {
		size := 1
		for i := 0; i < dim; i++ {
			size *= side
		}
		if size == len(data) {
			break
		}
		if size > len(data) {
			return nil, errors.Errorf("%d elements do not form a %dD grid", len(data), dim)
		}
		side++
	}
	g, err := NewGrid(dim, side)
	if err != nil {
		return nil, err
	}
	copy(g.Data, data)
	return g, nil
}

// Index returns the offset of coord into Data.
func (g *Grid) Index(coord []int) int {
	idx := 0
	for axis := 0; axis < g.Dim; axis++ {
		idx = idx*g.Side + coord[axis]
	}
	return idx
}

// Coord is the inverse of Index.
func (g *Grid) Coord(idx int) []int {
	coord := make([]int, g.Dim)
	for axis := g.Dim - 1; axis >= 0; axis-- {
		coord[axis] = idx % g.Side
		idx /= g.Side
	}
	return coord
}

// At returns the class at coord.
func (g *Grid) At(coord ...int) uint8 {
	return g.Data[g.Index(coord)]
}

// Set stores class at coord.
func (g *Grid) Set(class uint8, coord ...int) {
	g.Data[g.Index(coord)] = class
}

// Equal reports whether both grids have the same shape and contents.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Dim != other.Dim || g.Side != other.Side || len(g.Data) != len(other.Data) {
		return false
	}
	for i := range g.Data {
		if g.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	return &Grid{Dim: g.Dim, Side: g.Side, Data: append([]uint8(nil), g.Data...)}
}

// Histogram counts the cells of each class.
func (g *Grid) Histogram() map[uint8]int {
	counts := map[uint8]int{}
	for _, class := range g.Data {
		counts[class]++
	}
	return counts
}

// forEachInCell calls fn with the data index of every element of the cube of side size whose
// lowest corner is origin.
func (g *Grid) forEachInCell(origin []int, size int, fn func(idx int) bool) {
	total := 1
	for i := 0; i < g.Dim; i++ {
		total *= size
	}
	coord := make([]int, g.Dim)
	for k := 0; k < total; k++ {
		rem := k
		for axis := g.Dim - 1; axis >= 0; axis-- {
			coord[axis] = origin[axis] + rem%size
			rem /= size
		}
		if !fn(g.Index(coord)) {
			return
		}
	}
}

// uniformCell returns the class of a cell and whether every element shares it.
func (g *Grid) uniformCell(origin []int, size int) (uint8, bool) {
	first := g.Data[g.Index(origin)]
	uniform := true
	g.forEachInCell(origin, size, func(idx int) bool {
		if g.Data[idx] != first {
			uniform = false
		}
		return uniform
	})
	return first, uniform
}

func (g *Grid) fillCell(origin []int, size int, class uint8) {
	g.forEachInCell(origin, size, func(idx int) bool {
		g.Data[idx] = class
		return true
	})
}
