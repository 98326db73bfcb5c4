package cli

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/shapegen/gridio"
	"go.viam.com/shapegen/octree"
)

// LayerStat counts the tokens of one octree layer by kind.
type LayerStat struct {
	Depth  int
	Tokens int
	Mixed  int
	Empty  int
	Filled int
}

// LayerStats returns one entry per layer of seq, shallowest first.
func LayerStats(seq octree.Sequence) []LayerStat {
	out := make([]LayerStat, 0, seq.MaxDepth())
	for depth := 1; depth <= seq.MaxDepth(); depth++ {
		layer := seq.Layer(depth)
		kinds := lo.CountValuesBy(layer.Value, octree.NodeTypeOf)
		out = append(out, LayerStat{
			Depth:  depth,
			Tokens: layer.Len(),
			Mixed:  kinds[octree.InternalNode],
			Empty:  kinds[octree.LeafNodeEmpty],
			Filled: kinds[octree.LeafNodeFilled],
		})
	}
	return out
}

// LayerTable renders layer stats as a table with a totals footer.
func LayerTable(layers []LayerStat) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Depth", "Tokens", "Mixed", "Empty", "Filled"})
	var total LayerStat
	for _, l := range layers {
		t.AppendRow(table.Row{l.Depth, l.Tokens, l.Mixed, l.Empty, l.Filled})
		total.Tokens += l.Tokens
		total.Mixed += l.Mixed
		total.Empty += l.Empty
		total.Filled += l.Filled
	}
	t.AppendFooter(table.Row{"Total", total.Tokens, total.Mixed, total.Empty, total.Filled})
	return t.Render()
}

// leafSummary describes how quickly the layers resolve into leaves.
func leafSummary(layers []LayerStat) (string, error) {
	if len(layers) == 0 {
		return "no layers", nil
	}
	tokens := stats.Float64Data(lo.Map(layers, func(l LayerStat, _ int) float64 { return float64(l.Tokens) }))
	leafFraction := stats.Float64Data(lo.Map(layers, func(l LayerStat, _ int) float64 {
		return float64(l.Empty+l.Filled) / float64(l.Tokens)
	}))
	mean, err := tokens.Mean()
	if err != nil {
		return "", err
	}
	sd, err := tokens.StandardDeviation()
	if err != nil {
		return "", err
	}
	median, err := leafFraction.Median()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tokens per layer: mean %.2f, stddev %.2f; median leaf fraction %.2f", mean, sd, median), nil
}

// InspectAction prints the layers a grid file encodes to.
func InspectAction(cCtx *cli.Context) error {
	if cCtx.Args().Len() != 1 {
		return errors.New("expected exactly one grid file")
	}
	g, err := gridio.ReadFile(cCtx.Args().First())
	if err != nil {
		return err
	}
	resolution := g.Side
	if cCtx.IsSet(inspectFlagResolution) {
		resolution = cCtx.Int(inspectFlagResolution)
	}
	seq, err := octree.Encode(g, resolution)
	if err != nil {
		return err
	}

	layers := LayerStats(seq)
	printf(cCtx.App.Writer, "%dD grid of side %d encoded at resolution %d", g.Dim, g.Side, resolution)
	printf(cCtx.App.Writer, "%s", LayerTable(layers))
	summary, err := leafSummary(layers)
	if err != nil {
		return err
	}
	printf(cCtx.App.Writer, "%s", summary)

	histogram := g.Histogram()
	classes := lo.Keys(histogram)
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for _, class := range classes {
		printf(cCtx.App.Writer, "class %d: %d cells", class, histogram[class])
	}
	return nil
}
