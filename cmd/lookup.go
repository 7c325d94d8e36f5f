package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/county-api/internal/resolver"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup LAT LON",
	Short: "Resolve one coordinate to its county",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseCoords(args[0], args[1])
		if err != nil {
			return err
		}

		rc, err := loadContext(cmd.Context(), cfg, "lookup")
		if err != nil {
			return err
		}
		return runLookup(cmd.OutOrStdout(), rc, lat, lon)
	},
}

type lookupOutput struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	FIPS       *string `json:"fips"`
	CountyName *string `json:"county_name"`
}

func runLookup(w io.Writer, rc *resolver.Context, lat, lon float64) error {
	res, err := rc.Resolver.Resolve(lat, lon)
	if err != nil {
		return err
	}

	out := lookupOutput{Lat: lat, Lon: lon}
	if res.Found {
		out.FIPS = &res.FIPS
		out.CountyName = &res.Name
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseCoords(latStr, lonStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "parse longitude %q", lonStr)
	}
	return lat, lon, nil
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
