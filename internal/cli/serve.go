package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/config"
	"github.com/rcliao/sorma/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Run the HTTP API. The config file is watched and the owner section is reloaded on change.",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}
	cmd.Flags().String("host", "", "Listen host (default from config)")
	cmd.Flags().Int("port", 0, "Listen port (default from config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		a.cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		a.cfg.Server.Port = port
	}

	if a.configPath != "" {
		watchConfig(ctx, a)
	}

	srv := server.New(server.Options{
		Addr:       a.cfg.Server.Addr(),
		Assistant:  a.asst,
		SessionTTL: a.cfg.Server.SessionTTL,
		Metrics:    a.metrics,
		Logger:     a.logger,
	})
	if err := srv.Start(ctx); err != nil {
		exitErr("serve", err)
	}
}

func watchConfig(ctx context.Context, a *app) {
	mgr, err := config.NewManager(a.configPath, a.logger)
	if err != nil {
		a.logger.Warn("config watch disabled", "error", err)
		return
	}
	mgr.OnChange(func(cfg *config.Config) { a.applyConfig(ctx, cfg) })
	if err := mgr.Watch(ctx); err != nil {
		a.logger.Warn("config watch disabled", "error", err)
	}
}
