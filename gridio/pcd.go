package gridio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/shapegen/octree"
)

const (
	pcdCommentChar = "#"
	pcdGridTag     = "grid"
)

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

// cellCenter maps a cell to the center of its box inside the unit cube. A 2D grid lies on
// z = 0.
func cellCenter(coord []int, side int) r3.Vector {
	v := r3.Vector{X: float64(coord[0]), Y: float64(coord[1])}
	offset := r3.Vector{X: 0.5, Y: 0.5}
	if len(coord) > 2 {
		v.Z = float64(coord[2])
		offset.Z = 0.5
	}
	return v.Add(offset).Mul(1 / float64(side))
}

func cellOf(p r3.Vector, dim, side int) ([]int, error) {
	scaled := p.Mul(float64(side))
	coord := []int{int(math.Floor(scaled.X)), int(math.Floor(scaled.Y))}
	if dim > 2 {
		coord = append(coord, int(math.Floor(scaled.Z)))
	}
	for axis, c := range coord {
		if c < 0 || c >= side {
			return nil, errors.Errorf("point %v falls outside the grid on axis %d", p, axis)
		}
	}
	return coord, nil
}

// WritePCD writes every cell with a non zero class as an ascii PCD point at the center of
// the cell inside the unit cube, with the class in a label field. The grid dimension and side
// are kept in a comment so the grid can be read back.
func WritePCD(out io.Writer, g *octree.Grid) error {
	var cells []int
	for i, class := range g.Data {
		if class != 0 {
			cells = append(cells, i)
		}
	}
	if _, err := fmt.Fprintf(out, "%s %s %d %d\n", pcdCommentChar, pcdGridTag, g.Dim, g.Side); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z label\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F U\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		len(cells),
		len(cells)); err != nil {
		return err
	}
	for _, idx := range cells {
		p := cellCenter(g.Coord(idx), g.Side)
		if _, err := fmt.Fprintf(out, "%f %f %f %d\n", p.X, p.Y, p.Z, g.Data[idx]); err != nil {
			return err
		}
	}
	return nil
}

// ReadPCD reads a grid written by WritePCD.
func ReadPCD(inRaw io.Reader) (*octree.Grid, error) {
	in := bufio.NewReader(inRaw)
	var g *octree.Grid
	points := -1
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, comment, _ := strings.Cut(line, pcdCommentChar)
		if g == nil {
			if g, err = parseGridComment(comment); err != nil {
				return nil, err
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		if name != pcdHeaderFields[headerLineCount] {
			return nil, errors.Errorf("expected pcd header field %s, got %s", pcdHeaderFields[headerLineCount], name)
		}
		switch name {
		case "FIELDS":
			if value != "x y z label" {
				return nil, errors.Errorf("unsupported pcd fields %s", value)
			}
		case "POINTS":
			if points, err = strconv.Atoi(value); err != nil {
				return nil, errors.Wrap(err, "invalid POINTS")
			}
		case "DATA":
			if value != "ascii" {
				return nil, errors.Errorf("unsupported pcd data type %s", value)
			}
		}
		headerLineCount++
	}
	if g == nil {
		return nil, errors.New("pcd file has no grid comment")
	}

	for i := 0; i < points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "error reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != 4 {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		var p r3.Vector
		for j, dst := range []*float64{&p.X, &p.Y, &p.Z} {
			if *dst, err = strconv.ParseFloat(tokens[j], 64); err != nil {
				return nil, errors.Wrapf(err, "invalid point %d field %s", i, tokens[j])
			}
		}
		class, err := strconv.ParseUint(tokens[3], 10, 8)
		if err != nil || class > octree.MaxClass {
			return nil, errors.Errorf("invalid label %s for point %d", tokens[3], i)
		}
		coord, err := cellOf(p, g.Dim, g.Side)
		if err != nil {
			return nil, err
		}
		g.Set(uint8(class), coord...)
	}
	return g, nil
}

func parseGridComment(comment string) (*octree.Grid, error) {
	fields := strings.Fields(comment)
	if len(fields) != 3 || fields[0] != pcdGridTag {
		return nil, nil
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.Wrap(err, "invalid grid dimension")
	}
	side, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, errors.Wrap(err, "invalid grid side")
	}
	return octree.NewGrid(dim, side)
}
