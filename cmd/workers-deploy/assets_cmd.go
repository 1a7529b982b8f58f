package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Upload or inspect static assets",
	}
	cmd.PersistentFlags().String("assets", "", "Assets directory")
	cmd.PersistentFlags().String("ignore-file", "", "Ignore file (default <assets>/.assetsignore)")
	cmd.PersistentFlags().Duration("timeout", 0, "Timeout of each API request")

	cmd.AddCommand(newAssetsSyncCmd())
	cmd.AddCommand(newAssetsManifestCmd())
	return cmd
}

func newAssetsSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload the assets directory and print the completion token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			reporter := newConsoleReporter(cmd.ErrOrStderr(), assets.DefaultLimits().MaxDiffLines, cfg.Verbose)
			syncer, err := sessionSyncer(cfg, client, reporter)
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
}

func newAssetsManifestCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "manifest [dir]",
		Short: "Print the asset manifest without contacting the API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			root := cfg.Assets
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" {
				return fmt.Errorf("no assets directory, pass one or set assets in the config file")
			}

			manifest, err := assets.BuildManifest(cmd.Context(), root, assets.ManifestOptions{
				IgnoreFile: cfg.IgnoreFile,
				Hash:       cfg.HashAlgorithm(false),
				Keys:       assets.KeyByHash,
				Limits:     assets.DefaultLimits(),
			})
			if err != nil {
				return err
			}
			return writeManifest(cmd.OutOrStdout(), manifest, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}

func writeManifest(w io.Writer, manifest *assets.Manifest, format string) error {
	switch format {
	case "json":
		raw, err := manifest.MarshalJSON()
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err = w.Write(out.Bytes())
		return err

	case "yaml":
		// a mapping node keeps the walk order
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range manifest.Entries() {
			value := &yaml.Node{}
			if err := value.Encode(assets.ManifestRecord{Hash: string(e.Hash), Size: e.Size}); err != nil {
				return err
			}
			doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "/" + e.Path}, value)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q, want json or yaml", format)
}
