// Command hub runs the TilePad control-plane process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tilepad/hub/internal/hub/app"
	"github.com/tilepad/hub/internal/hub/banner"
	"github.com/tilepad/hub/internal/hub/config"
	"github.com/tilepad/hub/internal/hub/logging"
)

func main() {
	cfg := config.Load()

	logging.Init(os.Stdout)
	logging.SetLevel(cfg.LogLevel)

	banner.Print("TilePad Hub", []banner.ConfigLine{
		{Label: "Bind", Value: cfg.BindAddr},
		{Label: "Port", Value: strconv.Itoa(cfg.Port)},
		{Label: "Data dir", Value: cfg.DataDir},
		{Label: "Developer mode", Value: strconv.FormatBool(cfg.DeveloperMode)},
	})

	ctx := context.Background()
	hub, err := app.NewServer(ctx, cfg)
	if err != nil {
		slog.Error("[Main] failed to build hub", "error", err)
		os.Exit(1)
	}
	defer hub.Close()

	if err := hub.Start(); err != nil {
		slog.Error("[Main] failed to start hub", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("[Main] received signal, shutting down", "signal", sig.String())
}
