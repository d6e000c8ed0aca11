package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/veloscout/veloscout"
)

var (
	safetyRoute    string
	safetyBuffer   float64
	safetyMinScore float64
	safetyCriteria string
	safetyOSMFile  string
	safetyOutput   string
)

var safetyCmd = &cobra.Command{
	Use:   "safety",
	Short: "Score road segments along a route for cycling risk",
	Long: `Resolves the smallest region of the download catalog covering the
corridor, downloads its .osm.pbf extract into the dataset cache (or uses
--osm-file directly) and scores every road inside the corridor on a 0-10
risk scale. Output is GeoJSON with per-road scores, levels and factors.

Examples:
  veloscout safety --route tour.gpx -o risks.geojson
  veloscout safety --route tour.gpx --min-score 5 --osm-file morocco.osm.pbf`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		route, err := veloscout.LoadGPXRoute(safetyRoute)
		if err != nil {
			return err
		}

		criteria := veloscout.DefaultSafetyCriteria()
		criteriaFile := safetyCriteria
		if criteriaFile == "" {
			criteriaFile = cfg.Safety.CriteriaFile
		}
		if criteriaFile != "" {
			criteria, err = veloscout.LoadSafetyCriteria(criteriaFile)
			if err != nil {
				return err
			}
		}

		cache := veloscout.NewDatasetCache(cfg.Cache.Dir)
		options := []func(*veloscout.SafetyAnalyzer){}
		var catalog *veloscout.RegionCatalog
		if safetyOSMFile != "" {
			options = append(options, veloscout.WithDatasetFile(safetyOSMFile))
		} else {
			catalog, err = veloscout.LoadRegionCatalog(ctx, cfg.Regions.IndexURL, cfg.Cache.Dir, cfg.Regions.IndexMaxAge)
			if err != nil {
				return err
			}
		}

		buffer := safetyBuffer
		if buffer <= 0 {
			buffer = cfg.BufferMeters
		}
		minScore := safetyMinScore
		if !cmd.Flags().Changed("min-score") {
			minScore = cfg.Safety.MinScore
		}

		analyzer := veloscout.NewSafetyAnalyzer(catalog, cache, criteria, options...)
		result, err := analyzer.Analyze(ctx, route, buffer, minScore)
		if err != nil {
			return err
		}

		out, closeOut, err := openOutput(safetyOutput)
		if err != nil {
			return errors.Wrap(err, "Can't create output file")
		}
		defer closeOut()
		return veloscout.ExportGeoJSON(out, result)
	},
}

func init() {
	safetyCmd.Flags().StringVar(&safetyRoute, "route", "", "GPX file with the route (required)")
	safetyCmd.Flags().Float64Var(&safetyBuffer, "buffer", 0, "Corridor buffer in meters (default from config)")
	safetyCmd.Flags().Float64Var(&safetyMinScore, "min-score", 0, "Drop roads scoring below this value")
	safetyCmd.Flags().StringVar(&safetyCriteria, "criteria", "", "YAML file with scoring criteria")
	safetyCmd.Flags().StringVar(&safetyOSMFile, "osm-file", "", "Use this .osm.pbf extract instead of downloading one")
	safetyCmd.Flags().StringVarP(&safetyOutput, "output", "o", "", "Output file (default stdout)")
	_ = safetyCmd.MarkFlagRequired("route")
	rootCmd.AddCommand(safetyCmd)
}
