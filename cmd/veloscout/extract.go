package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veloscout/veloscout"
)

var (
	extractRoute      string
	extractStrategy   string
	extractBuffer     float64
	extractCategories string
	extractOSMFile    string
	extractOutput     string
	extractFormat     string
	extractSnap       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract categorized points of interest along a route",
	Long: `Loads a GPX route, builds the corridor and streams OpenStreetMap
features through it with the chosen acquisition strategy:

  simple  one Overpass query over the whole corridor (short routes)
  stages  the route is split into stages, each queried separately with
          retries and pacing (long routes, rate-limit friendly)
  local   a single forward pass over a local .osm.pbf extract

Examples:
  veloscout extract --route tour.gpx --strategy simple -o pois.csv
  veloscout extract --route brevet.gpx --strategy stages --format gpx -o pois.gpx
  veloscout extract --route tour.gpx --strategy local --osm-file morocco.osm.pbf`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		route, err := veloscout.LoadGPXRoute(extractRoute)
		if err != nil {
			return err
		}

		rules := veloscout.DefaultCategoryRules()
		if extractCategories != "" {
			rules, err = veloscout.LoadCategoryRules(extractCategories)
			if err != nil {
				return err
			}
		}

		buffer := extractBuffer
		if buffer <= 0 {
			buffer = cfg.BufferMeters
		}

		var provider veloscout.FeatureProvider
		switch extractStrategy {
		case "simple":
			client := veloscout.NewOverpassClient(cfg.Overpass)
			provider = veloscout.NewSimpleProvider(client, veloscout.QueryFilters(rules))
		case "stages":
			client := veloscout.NewOverpassClient(cfg.Overpass)
			provider = veloscout.NewStagedProvider(client, veloscout.QueryFilters(rules),
				veloscout.WithStageLength(cfg.Stages.LengthKm),
				veloscout.WithStageDelay(cfg.Stages.Delay),
				veloscout.WithStageRetries(cfg.Stages.MaxRetries),
			)
		case "local":
			if extractOSMFile == "" {
				return errors.New("Strategy 'local' needs --osm-file")
			}
			provider = veloscout.NewLocalProvider(extractOSMFile)
		default:
			return errors.Errorf("Unknown strategy '%s' (want simple, stages or local)", extractStrategy)
		}

		result, err := veloscout.Extract(ctx, route, buffer, provider, rules, veloscout.DefaultSafetyCriteria())
		if err != nil {
			return err
		}

		if extractSnap {
			snapper := veloscout.NewOSRMClient(cfg.OSRM)
			snapper.SnapPOIs(ctx, result.POIs)
		}

		for _, warning := range result.Warnings {
			zap.L().Warn("stage degraded", zap.String("warning", warning.String()))
		}

		out, closeOut, err := openOutput(extractOutput)
		if err != nil {
			return errors.Wrap(err, "Can't create output file")
		}
		defer closeOut()

		switch extractFormat {
		case "csv":
			return veloscout.ExportPOIsCSV(out, result.POIs)
		case "gpx":
			return veloscout.ExportPOIsGPX(out, result.POIs)
		case "geojson":
			return veloscout.ExportGeoJSON(out, result)
		default:
			return errors.Errorf("Unknown format '%s' (want csv, gpx or geojson)", extractFormat)
		}
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractRoute, "route", "", "GPX file with the route (required)")
	extractCmd.Flags().StringVar(&extractStrategy, "strategy", "simple", "Acquisition strategy: simple, stages or local")
	extractCmd.Flags().Float64Var(&extractBuffer, "buffer", 0, "Corridor buffer in meters (default from config)")
	extractCmd.Flags().StringVar(&extractCategories, "categories", "", "YAML file with category rules")
	extractCmd.Flags().StringVar(&extractOSMFile, "osm-file", "", "Local .osm.pbf extract (strategy 'local')")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file (default stdout)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "csv", "Output format: csv, gpx or geojson")
	extractCmd.Flags().BoolVar(&extractSnap, "snap", false, "Snap POIs to the nearest road via OSRM")
	_ = extractCmd.MarkFlagRequired("route")
	rootCmd.AddCommand(extractCmd)
}
