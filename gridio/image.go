package gridio

import (
	"image"
	"image/color"
	"io"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"

	"go.viam.com/shapegen/octree"
)

var background = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Image renders a 2D grid with the first axis as rows. Class 0 is white and class c is the
// pixel (c, 0, 0).
func Image(g *octree.Grid) (*image.RGBA, error) {
	if g.Dim != 2 {
		return nil, errors.Errorf("only 2D grids can be drawn, got %dD", g.Dim)
	}
	img := image.NewRGBA(image.Rect(0, 0, g.Side, g.Side))
	for row := 0; row < g.Side; row++ {
		for col := 0; col < g.Side; col++ {
			class := g.At(row, col)
			if class == 0 {
				img.SetRGBA(col, row, background)
				continue
			}
			img.SetRGBA(col, row, color.RGBA{R: class, A: 0xFF})
		}
	}
	return img, nil
}

// FromImage is the inverse of Image. The image must be square with a power of two side.
func FromImage(img image.Image) (*octree.Grid, error) {
	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return nil, errors.Errorf("grid images must be square, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	g, err := octree.NewGrid(2, bounds.Dx())
	if err != nil {
		return nil, err
	}
	for row := 0; row < g.Side; row++ {
		for col := 0; col < g.Side; col++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+col, bounds.Min.Y+row)).(color.RGBA)
			if c == background {
				continue
			}
			if c.R > octree.MaxClass {
				return nil, errors.Errorf("pixel (%d, %d) has class %d outside [0, %d]", col, row, c.R, octree.MaxClass)
			}
			g.Set(c.R, row, col)
		}
	}
	return g, nil
}

// WritePPM writes a 2D grid as a binary PPM image.
func WritePPM(out io.Writer, g *octree.Grid) error {
	img, err := Image(g)
	if err != nil {
		return err
	}
	return ppm.Encode(out, img)
}

// ReadPPM reads a grid written by WritePPM.
func ReadPPM(in io.Reader) (*octree.Grid, error) {
	img, err := ppm.Decode(in)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}
