package main

import (
	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/spf13/cobra"
)

func newSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Legacy site uploads to a key-value store",
	}
	cmd.AddCommand(newSiteSyncCmd())
	return cmd
}

func newSiteSyncCmd() *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload the site directory and remove stale files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var client *cfapi.Client
			if !usesS3(cfg) {
				if client, err = newClient(cfg); err != nil {
					return err
				}
			}

			reporter := newConsoleReporter(cmd.ErrOrStderr(), assets.DefaultLimits().MaxDiffLines, cfg.Verbose)
			syncer, err := siteSyncer(cmd.Context(), cfg, client, reporter, preview)
			if err != nil {
				return err
			}

			result, err := syncer.SyncAssets(cmd.Context())
			if err != nil {
				return err
			}
			reporter.Summary(result)
			printReference(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("site", "", "Site directory")
	flags.String("ignore-file", "", "Ignore file")
	flags.String("hash", "", "Key hash: xxh64 (default) or blake3")
	flags.Duration("timeout", 0, "Timeout of each API request")
	flags.Bool("dry-run", false, "Show the diff without uploading or deleting")
	flags.BoolVar(&preview, "preview", false, "Use the preview namespace")
	flags.String("s3-bucket", "", "Upload to this S3 bucket instead of KV")
	flags.String("s3-endpoint", "", "S3-compatible endpoint")
	flags.String("s3-region", "", "S3 region")
	flags.String("s3-prefix", "", "Key prefix inside the bucket")
	return cmd
}
