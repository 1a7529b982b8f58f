package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/devserver"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	var cfg devserver.Config

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "devserver",
		Short:        "Local emulator of the deploy API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := devserver.New(&cfg)
			if err != nil {
				return err
			}
			defer slog.Info("Bye!")
			return srv.Start(cmd.Context())
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.Addr, "bind", "b", devserver.DefaultAddr, "Address to bind the server")
	flags.StringVar(&cfg.DBPath, "db", "", "SQLite database path (default in memory)")
	flags.StringVar(&cfg.AccountID, "account-id", "", "Only accept this account id")
	flags.StringVar(&cfg.APIToken, "api-token", os.Getenv("CLOUDFLARE_API_TOKEN"), "Require this bearer token")
	flags.StringVar(&cfg.TokenSecret, "token-secret", "", "HS256 key for upload tokens (default random)")
	flags.DurationVar(&cfg.TokenExpiry, "token-expiry", time.Hour, "Upload token lifetime")
	flags.IntVar(&cfg.BucketSize, "bucket-size", devserver.DefaultBucketSize, "Hashes per upload bucket")
	flags.StringVar(&cfg.RateLimit, "rate-limit", devserver.DefaultRateLimit, "Request rate, e.g. 1200-M")
	flags.IntVar(&cfg.AssetCache, "asset-cache", devserver.DefaultAssetCache, "Served assets cached in memory")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
