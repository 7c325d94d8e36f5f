package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/resolver"
)

var routeCmd = &cobra.Command{
	Use:   "route LAT,LON LAT,LON [LAT,LON...]",
	Short: "List the counties a polyline crosses, in travel order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := parsePath(args)
		if err != nil {
			return err
		}

		rc, err := loadContext(cmd.Context(), cfg, "lookup")
		if err != nil {
			return err
		}
		return runRoute(cmd.OutOrStdout(), rc, path)
	},
}

func runRoute(w io.Writer, rc *resolver.Context, path []boundary.Point) error {
	counties, err := rc.Resolver.ResolveRoute(path)
	if err != nil {
		return err
	}
	if len(counties) == 0 {
		_, err := fmt.Fprintln(w, "no counties crossed")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "FIPS", "County", "Along (km)"})
	for i, c := range counties {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			c.FIPS,
			c.Name,
			fmt.Sprintf("%.2f", c.AlongKm),
		})
	}
	table.Render()
	return nil
}

// parsePath reads "lat,lon" arguments.
func parsePath(args []string) ([]boundary.Point, error) {
	path := make([]boundary.Point, len(args))
	for i, arg := range args {
		latStr, lonStr, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, eris.Errorf("point %d: expected LAT,LON, got %q", i, arg)
		}
		lat, lon, err := parseCoords(strings.TrimSpace(latStr), strings.TrimSpace(lonStr))
		if err != nil {
			return nil, eris.Wrapf(err, "point %d", i)
		}
		path[i] = boundary.Point{Lat: lat, Lon: lon}
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(routeCmd)
}
