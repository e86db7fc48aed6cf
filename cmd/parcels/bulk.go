package main

import (
	"strings"

	"parcel-harvester/internal/bulk"
	"parcel-harvester/pkg/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk [--output <file.csv>]",
	Short: "Page through the authenticated search endpoint and write every row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.log.Sync()
		cfg := env.cfg
		ctx := cmd.Context()

		if cfg.RespectRobots {
			base := strings.TrimRight(cfg.BaseURL, "/")
			err := util.CheckAllowed(ctx, env.scraper, env.scraper.UserAgent(),
				base+"/PROSSearch/SearchIndex", base+"/PROSSearch/GetAjax")
			if err != nil {
				return err
			}
		}

		paginator, err := bulk.NewPaginator(env.scraper, cfg.BaseURL, cfg.Bulk.PageLength, env.log)
		if err != nil {
			return err
		}

		res, err := paginator.Run(ctx)
		if err != nil {
			env.log.Error("bulk run aborted, nothing written", zap.Error(err))
			return err
		}
		env.log.Info("pagination finished",
			zap.Int("pages", res.Pages),
			zap.Int("rows", len(res.Records)),
			zap.Duration("took", res.Duration))
		return env.write(cfg.Bulk.Output, res.Records)
	},
}

func init() {
	bulkCmd.Flags().String("output", "", "CSV file to write")
	bulkCmd.Flags().Int("page-length", 0, "rows requested per page")

	mustBind("bulk.output", bulkCmd.Flags().Lookup("output"))
	mustBind("bulk.page_length", bulkCmd.Flags().Lookup("page-length"))

	rootCmd.AddCommand(bulkCmd)
}
