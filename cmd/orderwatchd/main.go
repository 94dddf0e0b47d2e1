package main

import (
	"log/slog"
	"os"
	"time"

	"orderwatch/lib/configutil"
	"orderwatch/lib/serviceutil"
	"orderwatch/lib/telemetry"
	"orderwatch/services/agent"

	"github.com/lmittmann/tint"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := configutil.ReadConfig[agent.Config]("orderwatch.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "orderwatchd")
	if os.IsNotExist(err) {
		slog.Warn("no telemetry.json5 found, telemetry is disabled")
	} else if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	} else {
		defer tel.Shutdown(ctx)
		telemetry.InstrumentPerfStats(ctx)
	}

	supervisor, err := agent.NewSupervisor(cfg)
	if err != nil {
		serviceutil.Fatal("failed to initialize supervisor", err)
	}

	slog.Info("starting supervisor loop",
		"portal", cfg.Portal.BaseUrl,
		"zipcode", cfg.Search.Zipcode,
		"category", cfg.Search.Category,
	)
	supervisor.Run(ctx)
}
