package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sells-group/county-api/internal/resolver"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the boundary dataset and print index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadContext(cmd.Context(), cfg, "lookup")
		if err != nil {
			return err
		}
		return runInspect(cmd.OutOrStdout(), rc)
	},
}

func runInspect(w io.Writer, rc *resolver.Context) error {
	var polygons, holes, vertices int
	for _, c := range rc.Store.All() {
		polygons += len(c.Polygons)
		for _, p := range c.Polygons {
			holes += len(p.Holes)
			vertices += len(p.Outer)
			for _, h := range p.Holes {
				vertices += len(h)
			}
		}
	}
	ext := rc.Store.Extent()
	gs := rc.Grid.Stats()
	malformed := rc.Resolver.Malformed()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"counties", fmt.Sprintf("%d", rc.Store.Len())},
		{"polygons", fmt.Sprintf("%d", polygons)},
		{"holes", fmt.Sprintf("%d", holes)},
		{"vertices", fmt.Sprintf("%d", vertices)},
		{"malformed counties", fmt.Sprintf("%d", len(malformed))},
		{"extent", fmt.Sprintf("%.4f,%.4f .. %.4f,%.4f", ext.MinLat, ext.MinLon, ext.MaxLat, ext.MaxLon)},
		{"grid cell (deg)", fmt.Sprintf("%.4f", gs.CellDegrees)},
		{"grid size", fmt.Sprintf("%d x %d", gs.Rows, gs.Cols)},
		{"non-empty cells", fmt.Sprintf("%d", gs.NonEmptyCells)},
		{"mean candidates", fmt.Sprintf("%.2f", gs.MeanCandidates)},
		{"max candidates", fmt.Sprintf("%d", gs.MaxCandidates)},
	})
	table.Render()

	for _, err := range malformed {
		if _, werr := fmt.Fprintln(w, "skipped:", err); werr != nil {
			return werr
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
