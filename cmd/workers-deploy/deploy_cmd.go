package main

import (
	"fmt"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/deploy"
	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [entry]",
		Short: "Upload assets and publish a new version of the worker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Main = args[0]
			}
			cfg.DryRun = false

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			reporter := newConsoleReporter(cmd.ErrOrStderr(), assets.DefaultLimits().MaxDiffLines, cfg.Verbose)
			d := &deploy.Deployer{
				Bundler:   deploy.FileBundler{},
				Publisher: &deploy.APIPublisher{Scripts: client.Scripts},
			}

			var syncer *deploy.EngineSyncer
			switch {
			case cfg.Assets != "":
				syncer, err = sessionSyncer(cfg, client, reporter)
			case cfg.Site != nil && cfg.Site.Bucket != "":
				syncer, err = siteSyncer(cmd.Context(), cfg, client, reporter, false)
			}
			if err != nil {
				return err
			}
			if syncer != nil {
				d.Assets = syncer
			}

			v, err := d.Deploy(cmd.Context(), deploy.Request{
				Script:             cfg.Name,
				Entry:              cfg.Main,
				CompatibilityDate:  cfg.CompatibilityDate,
				CompatibilityFlags: cfg.CompatibilityFlags,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green.Render("Deployed"), bold.Render(cfg.Name))
			fmt.Fprintf(cmd.OutOrStdout(), "Current version: %s\n", cyan.Render(v.ID))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("assets", "", "Assets directory")
	flags.String("site", "", "Legacy site directory")
	flags.String("ignore-file", "", "Ignore file")
	flags.Duration("timeout", 0, "Timeout of each API request")
	return cmd
}
