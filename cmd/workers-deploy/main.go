package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudflare/workers-sdk-sub005/internal/config"
	"github.com/cloudflare/workers-sdk-sub005/internal/utils"
	"github.com/cloudflare/workers-sdk-sub005/internal/version"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "DEPLOY"

// flag name -> config key
var flagKeys = map[string]string{
	"account-id":   "account_id",
	"api-base-url": "api_base_url",
	"name":         "name",
	"assets":       "assets",
	"ignore-file":  "ignore_file",
	"site":         "site.bucket",
	"hash":         "hash",
	"timeout":      "timeout",
	"verbose":      "verbose",
	"dry-run":      "dry_run",
	"s3-bucket":    "s3.bucket",
	"s3-endpoint":  "s3.endpoint",
	"s3-region":    "s3.region",
	"s3-prefix":    "s3.prefix",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "workers-deploy",
		Short:         "Deploy workers and their static assets",
		Version:       version.Detailed(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")
			return setupLogger(cmd.ErrOrStderr(), verbose, logFile)
		},
	}

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", "", "Config file (default ./deploy.{json,toml,yaml})")
	flags.String("account-id", "", "Account id")
	flags.String("api-base-url", "", "API base url")
	flags.StringP("name", "n", "", "Worker name")
	flags.BoolP("verbose", "v", false, "Show every asset and debug logs")
	flags.String("log-file", "", "Also write logs to this file")

	root.AddCommand(newDeployCmd())
	root.AddCommand(newAssetsCmd())
	root.AddCommand(newSiteCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red.Render("✘ "+err.Error()))
		os.Exit(1)
	}
}

func setupLogger(w io.Writer, verbose bool, logFile string) error {
	level := slog.LevelInfo
	if verbose || strings.EqualFold(os.Getenv(envPrefix+"_LOG"), "debug") {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	handlers := []slog.Handler{tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})}

	if logFile != "" {
		if err := utils.EnsureParent(logFile); err != nil {
			return err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(handlers...)))
	return nil
}

// loadConfig merges .env, the config file, environment and flags, in rising priority
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(config.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("account_id", "CLOUDFLARE_ACCOUNT_ID", envPrefix+"_ACCOUNT_ID")
	v.BindEnv("api_token", "CLOUDFLARE_API_TOKEN", envPrefix+"_API_TOKEN")
	v.BindEnv("api_base_url", "CLOUDFLARE_API_BASE_URL", envPrefix+"_API_BASE_URL")
	v.BindEnv("s3.access_key", "AWS_ACCESS_KEY_ID", envPrefix+"_S3_ACCESS_KEY")
	v.BindEnv("s3.secret_key", "AWS_SECRET_ACCESS_KEY", envPrefix+"_S3_SECRET_KEY")

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			v.BindPFlag(key, f)
		}
	}

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", cfg.Path, "name", cfg.Name, "account", cfg.AccountID, "token", utils.MaskSecret(cfg.APIToken))
	return cfg, nil
}
