package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "groupguard",
		Usage:   "group moderation daemon (watches the door)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-relay-host",
			Usage:   "hostname and port of client log relay to subscribe to",
			Value:   "ws://localhost:8787",
			EnvVars: []string{"GROUPGUARD_LOG_RELAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "directory-host",
			Usage:   "method, hostname, and port of community directory API",
			Value:   "https://api.vrchat.cloud",
			EnvVars: []string{"GROUPGUARD_DIRECTORY_HOST"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/groupguard/rules.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; enables persistent interception log and occupancy snapshots",
			EnvVars: []string{"GROUPGUARD_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3899",
			EnvVars: []string{"GROUPGUARD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3898",
			EnvVars: []string{"GROUPGUARD_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "directory-rate-limit",
			Usage:   "max number of requests per second to the community directory",
			Value:   8,
			EnvVars: []string{"GROUPGUARD_DIRECTORY_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "scan-rate-limit",
			Usage:   "max per-candidate enrichment fetches per second during batch scans",
			Value:   4,
			EnvVars: []string{"GROUPGUARD_SCAN_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "history-capacity",
			Usage:   "max occupancy samples retained for the live session",
			Value:   2000,
			EnvVars: []string{"GROUPGUARD_HISTORY_CAPACITY"},
		},
		&cli.IntFlag{
			Name:    "interception-log-capacity",
			Usage:   "max recent interception entries retained",
			Value:   50,
			EnvVars: []string{"GROUPGUARD_INTERCEPTION_LOG_CAPACITY"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("groupguard"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),
					attribute.String("environment", os.Getenv("ENVIRONMENT")),
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		db, err := setupDatabase(cctx.String("database-url"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				LogRelayHost:        cctx.String("log-relay-host"),
				DirectoryHost:       cctx.String("directory-host"),
				DirectoryRateLimit:  cctx.Int("directory-rate-limit"),
				ScanRateLimit:       cctx.Int("scan-rate-limit"),
				RedisURL:            cctx.String("redis-url"),
				Bind:                cctx.String("bind"),
				HistoryCapacity:     cctx.Int("history-capacity"),
				InterceptLogEntries: cctx.Int("interception-log-capacity"),
				Logger:              logger,
			},
		)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

// setupDatabase opens the rule database. Only sqlite URLs are supported; an
// empty URL disables persistence and rules live in memory only.
func setupDatabase(dburl string) (*gorm.DB, error) {
	if dburl == "" {
		return nil, nil
	}
	path, ok := strings.CutPrefix(dburl, "sqlite://")
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme: %s", dburl)
	}
	if err := os.MkdirAll(dirOf(path), os.ModePerm); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening rule database: %w", err)
	}
	return db, nil
}

func dirOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx > 0 {
		return path[:idx]
	}
	return "."
}
