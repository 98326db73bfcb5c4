// Package gridio reads and writes class grids as JSON, PPM images and PCD point clouds.
package gridio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/shapegen/octree"
)

// ReadFile returns the grid stored in the given file. The format is chosen by extension.
func ReadFile(fn string) (*octree.Grid, error) {
	read, err := readerFor(fn)
	if err != nil {
		return nil, err
	}
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	g, err := read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read grid from %q", fn)
	}
	return g, nil
}

// WriteFile stores g in the given file. The format is chosen by extension.
func WriteFile(fn string, g *octree.Grid) (err error) {
	write, err := writerFor(fn)
	if err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return write(f, g)
}

func readerFor(fn string) (func(io.Reader) (*octree.Grid, error), error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".json":
		return ReadJSON, nil
	case ".ppm":
		return ReadPPM, nil
	case ".pcd":
		return ReadPCD, nil
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

func writerFor(fn string) (func(io.Writer, *octree.Grid) error, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".json":
		return WriteJSON, nil
	case ".ppm":
		return WritePPM, nil
	case ".pcd":
		return WritePCD, nil
	default:
		return nil, errors.Errorf("do not know how to write file %q", fn)
	}
}

// DefaultExtension returns the preferred file extension for a grid of the given dimension.
func DefaultExtension(dim int) string {
	switch dim {
	case 2:
		return ".ppm"
	case 3:
		return ".pcd"
	default:
		return ".json"
	}
}
