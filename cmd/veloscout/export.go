package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/veloscout/veloscout"
)

var (
	exportInput  string
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export an extraction result in another format",
	Long: `Reads the GeoJSON result of a previous extract or safety run and
rewrites its points of interest as CSV, GPX waypoints or plain GeoJSON,
without re-running the extraction.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, err := os.Open(exportInput)
		if err != nil {
			return errors.Wrap(err, "Can't open result file")
		}
		defer in.Close()

		pois, err := veloscout.ImportGeoJSONPOIs(in)
		if err != nil {
			return err
		}

		out, closeOut, err := openOutput(exportOutput)
		if err != nil {
			return errors.Wrap(err, "Can't create output file")
		}
		defer closeOut()

		switch exportFormat {
		case "csv":
			return veloscout.ExportPOIsCSV(out, pois)
		case "gpx":
			return veloscout.ExportPOIsGPX(out, pois)
		case "geojson":
			return veloscout.ExportGeoJSON(out, &veloscout.ExtractionResult{POIs: pois})
		default:
			return errors.Errorf("Unknown format '%s' (want csv, gpx or geojson)", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "GeoJSON result file (required)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "gpx", "Output format: csv, gpx or geojson")
	_ = exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}
