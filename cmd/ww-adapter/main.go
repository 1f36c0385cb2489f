package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/pointsbridge/ww-adapter/internal/api"
	"github.com/pointsbridge/ww-adapter/internal/publisher"
	"github.com/pointsbridge/ww-adapter/internal/rate"
	"github.com/pointsbridge/ww-adapter/internal/registry"
	internalsecrets "github.com/pointsbridge/ww-adapter/internal/secrets"
	"github.com/pointsbridge/ww-adapter/pkg/config"
	"github.com/pointsbridge/ww-adapter/pkg/logger"
	"github.com/pointsbridge/ww-adapter/pkg/secrets"
	"github.com/pointsbridge/ww-adapter/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [ww-adapter]...")

	// --- Secrets provider (only needed when a credentials secret is set) ---
	var provider secrets.Provider
	if cfg.CredentialsSecret != "" {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		provider = awsProvider
	}

	// --- Resolve account credentials ---
	resolver := internalsecrets.NewResolver(logg.Desugar(), cfg, provider)
	creds, err := resolver.Resolve(ctx)
	if err != nil {
		logg.Fatalw("failed to resolve WW credentials", "error", err)
	}
	logg.Infow("account configured",
		"account", utils.MaskEmail(creds.Username),
		"region", creds.Region)

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err, "url", cfg.NATSURL)
	}

	pub, err := publisher.New(nc, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 2,
		Burst:             5,
	})

	// --- Account registry + manager ---
	reg := registry.New()
	mgr := registry.NewManager(ctx, logg.Desugar(), reg, rateMgr, pub, cfg.PollInterval)

	// Register the configured account. A failed login is not fatal: the API
	// stays up so the operator can re-submit credentials.
	if entry, err := mgr.Create(ctx, creds); err != nil {
		logg.Warnw("initial account registration failed",
			"account", utils.MaskEmail(creds.Username),
			"error", err)
	} else {
		logg.Infow("account registered", "entry_id", entry.ID)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewHandler(logg.Desugar(), mgr)
	api.RegisterRoutes(app, nc, reg, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[ww-adapter] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"poll_interval", cfg.PollInterval)

	<-ctx.Done()
	logg.Info("shutting down [ww-adapter]...")

	for _, entry := range reg.List() {
		reg.Remove(entry.ID)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
}
