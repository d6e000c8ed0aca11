package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veloscout/veloscout"
)

var cacheClearMaxAge time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk dataset cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached extracts older than --max-age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		maxAge := cacheClearMaxAge
		if !cmd.Flags().Changed("max-age") {
			maxAge = cfg.Cache.MaxAge
		}
		cache := veloscout.NewDatasetCache(cfg.Cache.Dir)
		removed, err := cache.Clear(maxAge)
		if err != nil {
			return err
		}
		zap.L().Info("cache cleared", zap.String("dir", cache.Dir()), zap.Int("removed", removed))
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().DurationVar(&cacheClearMaxAge, "max-age", 0, "Remove datasets older than this (0 removes all)")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
