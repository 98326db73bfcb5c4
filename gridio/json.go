package gridio

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/octree"
)

type jsonGrid struct {
	Dim  int   `json:"dim"`
	Side int   `json:"side"`
	Data []int `json:"data"`
}

// WriteJSON writes g as {"dim", "side", "data"} with one class per cell.
func WriteJSON(out io.Writer, g *octree.Grid) error {
	enc := json.NewEncoder(out)
	return enc.Encode(jsonGrid{
		Dim:  g.Dim,
		Side: g.Side,
		Data: lo.Map(g.Data, func(class uint8, _ int) int { return int(class) }),
	})
}

// ReadJSON reads a grid written by WriteJSON.
func ReadJSON(in io.Reader) (*octree.Grid, error) {
	var raw jsonGrid
	if err := json.NewDecoder(in).Decode(&raw); err != nil {
		return nil, err
	}
	size, err := octree.CellCount(raw.Dim, raw.Side)
	if err != nil {
		return nil, err
	}
	if len(raw.Data) != size {
		return nil, errors.Errorf("grid of side %d in %dD needs %d cells, got %d", raw.Side, raw.Dim, size, len(raw.Data))
	}
	data := make([]uint8, size)
	for i, class := range raw.Data {
		if class < 0 || class > octree.MaxClass {
			return nil, errors.Errorf("cell %d has class %d outside [0, %d]", i, class, octree.MaxClass)
		}
		data[i] = uint8(class)
	}
	shape := lo.Times(raw.Dim, func(int) int { return raw.Side })
	return octree.GridFromTensor(tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)))
}
