package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/frontline"
	"pkt.systems/frontline/httpapi"
	"pkt.systems/frontline/internal/appconfig"
	"pkt.systems/frontline/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the front-end host",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			opts := []frontline.ServerOption{frontline.WithTransport()}
			if cfg.SSH.Addr != "" {
				opts = append(opts, frontline.WithSSH())
			}
			if cfg.HTTP.Addr != "" {
				opts = append(opts, frontline.WithHTTP())
			}
			server, err := frontline.New(toServerConfig(cfg), frontline.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func toServerConfig(cfg appconfig.Config) frontline.ServerConfig {
	return frontline.ServerConfig{
		Transport: cfg.Transport,
		SSH: sshserver.Config{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
		},
		HTTP: httpapi.Config{
			Addr:        cfg.HTTP.Addr,
			BasePath:    cfg.HTTP.BasePath,
			HistorySize: cfg.HTTP.HistorySize,
		},
		MaxViews: cfg.Display.MaxViews,
	}
}
