package main

import (
	"errors"
	"fmt"

	"parcel-harvester/internal/config"
	"parcel-harvester/internal/crawler"
	"parcel-harvester/internal/logger"
	"parcel-harvester/internal/storage"
	"parcel-harvester/pkg/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	v       = config.New()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "parcels",
	Short:         "parcels harvests parcel records from a PROS assessment portal into a CSV table.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file (env PARCELS_* overrides it)")
	flags.String("base-url", "", "portal base url")
	flags.Duration("delay", 0, "minimum spacing between requests")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("respect-robots", false, "refuse to run when robots.txt disallows the portal paths")

	mustBind("base_url", flags.Lookup("base-url"))
	mustBind("delay", flags.Lookup("delay"))
	mustBind("log.level", flags.Lookup("log-level"))
	mustBind("respect_robots", flags.Lookup("respect-robots"))
}

// runEnv is what every harvesting command starts from.
type runEnv struct {
	cfg     *config.Config
	log     *zap.Logger
	scraper *crawler.Scraper
}

func setup() (*runEnv, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_id", uuid.NewString()))

	scraper, err := crawler.NewScraper(crawler.ScraperOptions{
		UserAgent:   cfg.UserAgent,
		Delay:       cfg.Delay,
		Jitter:      cfg.Jitter,
		Timeout:     cfg.Timeout,
		MaxBodySize: cfg.MaxBodySize,
	})
	if err != nil {
		return nil, fmt.Errorf("create http session: %w", err)
	}

	return &runEnv{cfg: cfg, log: log, scraper: scraper}, nil
}

// write consolidates and writes the table. No records is reported, not failed.
func (e *runEnv) write(path string, records []models.Record) error {
	table, err := storage.WriteCSV(path, records)
	var empty *storage.EmptyResultError
	if errors.As(err, &empty) {
		e.log.Warn("no parcel data was found", zap.String("output", path))
		return nil
	}
	if err != nil {
		return err
	}
	e.log.Info("done",
		zap.String("output", path),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)),
		zap.Int64("requests", e.scraper.Requests()))
	return nil
}
