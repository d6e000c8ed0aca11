package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veloscout/veloscout"
)

var (
	cfgFile string
	cfg     *veloscout.Config
)

var rootCmd = &cobra.Command{
	Use:   "veloscout",
	Short: "Route corridor extraction and road risk scoring for cyclists",
	Long: `Builds a buffered corridor around a cycling route, pulls OpenStreetMap
features inside it (remote Overpass queries or a local .osm.pbf extract),
categorizes points of interest and scores road segments for cycling risk.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := veloscout.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if err := veloscout.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
}

// openOutput returns the destination writer for an export. An empty path
// means stdout; the caller owns closing the returned closer.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
