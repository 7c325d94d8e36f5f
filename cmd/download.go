package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/county-api/internal/boundary"
)

var (
	downloadYear int
	downloadURL  string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and extract the TIGER/Line county shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if downloadYear != 0 {
			cfg.Boundaries.Year = downloadYear
		}
		if err := cfg.Validate("download"); err != nil {
			return err
		}

		url := downloadURL
		if url == "" {
			url = boundary.CountyURL(cfg.Boundaries.Year)
		}

		shp, err := boundary.Download(cmd.Context(), nil, url, cfg.Boundaries.TempDir, os.Stderr)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), shp)
		return err
	},
}

func init() {
	downloadCmd.Flags().IntVar(&downloadYear, "year", 0, "TIGER/Line vintage (default from config)")
	downloadCmd.Flags().StringVar(&downloadURL, "url", "", "override the download URL")
	rootCmd.AddCommand(downloadCmd)
}
