package main

import (
	"parcel-harvester/internal/crawler"
	"parcel-harvester/internal/frontier"
	"parcel-harvester/pkg/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan [--output <file.csv>]",
	Short: "Brute-force parcel IDs per SWIS code and extract each detail page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.log.Sync()
		cfg := env.cfg
		ctx := cmd.Context()

		scans, err := frontier.ParseScans(cfg.Scan.SWISCodes, cfg.Scan.MinID, cfg.Scan.MaxID)
		if err != nil {
			return err
		}

		if cfg.RespectRobots {
			target := frontier.DetailURL(cfg.BaseURL, cfg.Scan.MinID, "0")
			if err := util.CheckAllowed(ctx, env.scraper, env.scraper.UserAgent(), target); err != nil {
				return err
			}
		}

		coordinator, err := crawler.NewCoordinator(env.scraper, crawler.CoordinatorOptions{
			BaseURL:       cfg.BaseURL,
			NotFoundLimit: cfg.Scan.NotFoundLimit,
			Markers:       cfg.Scan.Markers,
			Workers:       cfg.Scan.Workers,
		}, env.log)
		if err != nil {
			return err
		}

		env.log.Info("starting scan",
			zap.Strings("swis", cfg.Scan.SWISCodes),
			zap.Int("min_id", cfg.Scan.MinID),
			zap.Int("max_id", cfg.Scan.MaxID),
			zap.Int("not_found_limit", cfg.Scan.NotFoundLimit),
			zap.Duration("delay", cfg.Delay))

		summary, err := coordinator.Run(ctx, scans)
		if err != nil {
			env.log.Error("scan aborted, nothing written", zap.Error(err))
			return err
		}
		records := summary.Records()
		env.log.Info("scan finished",
			zap.Int("records", len(records)),
			zap.Int("requested", summary.Requested()),
			zap.Int("jurisdictions", len(summary.Jurisdictions)),
			zap.Int("abandoned", summary.Abandoned()))
		return env.write(cfg.Scan.Output, records)
	},
}

func init() {
	scanCmd.Flags().String("output", "", "CSV file to write")
	scanCmd.Flags().StringSlice("swis", nil, "SWIS codes to scan")
	scanCmd.Flags().Int("min-id", 0, "first parcel ID")
	scanCmd.Flags().Int("max-id", 0, "last parcel ID")
	scanCmd.Flags().Int("not-found-limit", 0, "consecutive 404s that end a jurisdiction")
	scanCmd.Flags().Int("workers", 0, "jurisdictions scanned at once")

	mustBind("scan.output", scanCmd.Flags().Lookup("output"))
	mustBind("scan.swis_codes", scanCmd.Flags().Lookup("swis"))
	mustBind("scan.min_id", scanCmd.Flags().Lookup("min-id"))
	mustBind("scan.max_id", scanCmd.Flags().Lookup("max-id"))
	mustBind("scan.not_found_limit", scanCmd.Flags().Lookup("not-found-limit"))
	mustBind("scan.workers", scanCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(scanCmd)
}
