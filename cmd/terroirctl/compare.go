package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/terroir-match-service/internal/adapter/catalogfile"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/matcher"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	catalogPath string
	top         int
	asJSON      bool
}

func newCompareCmd() *cobra.Command {
	var opts compareOptions
	cmd := &cobra.Command{
		Use:   "compare <profile.json>",
		Short: "Score a location profile against the catalog",
		Long: "Reads a location profile (mean_elevation, mean_temp, avg_diurnal_range, " +
			"mean_soil_content_%) and prints every region ranked by dissimilarity.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read profile: %w", err)
			}
			loc, err := domain.DecodeLocationProfile(data)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			catalog, err := catalogfile.NewSource(opts.catalogPath, logger).LoadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			m := matcher.New(catalog, nil, nil, observability.NewMetricsForTesting(), logger)
			result, err := m.CompareProfile(loc)
			if err != nil {
				return err
			}
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printComparison(cmd.OutOrStdout(), catalog, result, opts.top)
		},
	}
	cmd.Flags().StringVarP(&opts.catalogPath, "catalog", "c", "", "catalog file (default: embedded catalog)")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "show only the n closest regions")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printComparison(w io.Writer, catalog *domain.Catalog, result domain.MatchResult, top int) error {
	ranked := result.Ranked
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tREGION\tCOUNTRY\tSCORE")
	for i, s := range ranked {
		region, _ := catalog.Region(s.RegionID)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\n", i+1, s.RegionID, region.Country, s.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	d := result.Delta
	fmt.Fprintf(w, "\nBest match: %s (score %.2f)\n", result.BestRegion, result.BestScore)
	fmt.Fprintf(w, "  elevation %+.2f m, temperature %+.2f °C, diurnal range %+.2f °C\n",
		d.MeanElevation, d.MeanTemp, d.AvgDiurnalRange)
	fmt.Fprintf(w, "  clay %+.2f, sand %+.2f, organic matter %+.2f, other %+.2f (percentage points)\n",
		d.Soil.Clay, d.Soil.Sand, d.Soil.OrganicMatter, d.Soil.Other)
	return nil
}
