package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/shapegen/gridio"
	"go.viam.com/shapegen/octree"
)

// RoundTripAction encodes a grid file at its full resolution, decodes it again and fails if
// any cell changed.
func RoundTripAction(cCtx *cli.Context) error {
	if cCtx.Args().Len() != 1 {
		return errors.New("expected exactly one grid file")
	}
	path := cCtx.Args().First()
	g, err := gridio.ReadFile(path)
	if err != nil {
		return err
	}
	seq, err := octree.Encode(g, g.Side)
	if err != nil {
		return err
	}
	if err := octree.CheckBranching(seq, false); err != nil {
		return errors.Wrap(err, "encoded sequence is malformed")
	}
	decoded, err := octree.Decode(seq, g.Side)
	if err != nil {
		return err
	}
	if !decoded.Equal(g) {
		return errors.Errorf("%s does not survive encoding", path)
	}
	printf(cCtx.App.Writer, "%s: round trip ok, %d tokens over %d layers", path, seq.Len(), seq.MaxDepth())
	return nil
}
