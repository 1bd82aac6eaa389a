package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/frebib/jellyfin-exporter/collector"
	"github.com/frebib/jellyfin-exporter/config"
	"github.com/frebib/jellyfin-exporter/jellyfin"
	"github.com/frebib/jellyfin-exporter/server"
	"github.com/frebib/jellyfin-exporter/telemetry"
	"github.com/frebib/jellyfin-exporter/version"
)

const appName = "jellyfin_exporter"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Export Jellyfin users, library and playback metrics to Prometheus"
	app.Version = version.Version
	app.Flags = append([]cli.Flag{
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "Log level (trace, debug, info, warn, error)",
			Value:  "info",
			EnvVar: "LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-format",
			Usage:  "Log format (text, json)",
			Value:  "text",
			EnvVar: "LOG_FORMAT",
		},
	}, config.Flags()...)
	app.Action = run
	return app
}

func newLogger(level, format string) (*log.Entry, error) {
	l := log.New()
	l.SetOutput(os.Stderr)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)

	switch format {
	case "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log.NewEntry(l), nil
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	flags, path := config.FromCLI(c)
	cfg, err := config.Resolve(flags, path)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	logger.WithFields(log.Fields{
		"version":   version.Version,
		"url":       cfg.Server.BaseURL,
		"interval":  cfg.CollectInterval(),
		"timeout":   cfg.RequestTimeout(),
		"namespace": cfg.Namespace,
		"listen":    cfg.ListenAddress,
	}).Info("Starting jellyfin_exporter")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.Init(ctx, appName, version.Version, logger)
	if err != nil {
		logger.WithError(err).Warn("Tracing init failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(flushCtx)
	}()

	s := jellyfin.NewServer(cfg.Server, cfg.RequestTimeout())
	client := jellyfin.NewJellyfinClient(s, cfg.Interval, cfg.CountUntranscodedAsDirect(),
		logger.WithField("server", cfg.Server.BaseURL))
	col := collector.NewJellyfinCollector(client, cfg.Namespace, logger.WithField("component", "collector"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(col)

	srv := server.NewServer(cfg.ListenAddress, registry, logger.WithField("component", "server"))
	if err := srv.Start(); err != nil {
		return cli.NewExitError(err, 1)
	}

	col.Run(ctx, cfg.CollectInterval())

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
