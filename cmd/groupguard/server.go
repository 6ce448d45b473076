package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod/interceptlog"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod/rulestore"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/directory"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/presence"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/presence/logwatch"
)

type Server struct {
	logger     *slog.Logger
	engine     *automod.Engine
	tracker    *presence.Tracker
	consumer   *logwatch.LogStreamConsumer
	rules      rulestore.RuleConfigStore
	intercepts interceptlog.InterceptionLog
	dir        *directory.CachedDirectory
	rdb        *redis.Client

	echo  *echo.Echo
	httpd *http.Server
}

type Config struct {
	LogRelayHost        string
	DirectoryHost       string
	DirectoryRateLimit  int
	ScanRateLimit       int
	RedisURL            string
	Bind                string
	HistoryCapacity     int
	InterceptLogEntries int
	Logger              *slog.Logger
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	relayws := config.LogRelayHost
	if !strings.HasPrefix(relayws, "ws") {
		return nil, fmt.Errorf("specified log relay host must include 'ws://' or 'wss://'")
	}

	var intercepts interceptlog.InterceptionLog
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for occupancy snapshot state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		il, err := interceptlog.NewRedisInterceptionLog(config.RedisURL, config.InterceptLogEntries)
		if err != nil {
			return nil, fmt.Errorf("initializing redis interception log: %v", err)
		}
		intercepts = il
	} else {
		intercepts = interceptlog.NewMemInterceptionLog(config.InterceptLogEntries)
	}

	var rules rulestore.RuleConfigStore
	if db != nil {
		rs, err := rulestore.NewGormRuleStore(db, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing rule store: %v", err)
		}
		rules = rs
	} else {
		logger.Info("database not configured, rules are in-memory only")
		rules = rulestore.NewMemRuleStore()
	}

	remote := directory.NewRemoteDirectory(config.DirectoryHost, float64(config.DirectoryRateLimit), logger)
	dir := directory.NewCachedDirectory(remote, 5_000, 10*time.Minute)

	var limiter *rate.Limiter
	if config.ScanRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.ScanRateLimit), 1)
	}
	engine := &automod.Engine{
		Logger:      logger,
		Directory:   dir,
		ScanLimiter: limiter,
	}

	tracker := presence.NewTracker(logger, config.HistoryCapacity)

	s := &Server{
		logger:  logger,
		engine:  engine,
		tracker: tracker,
		consumer: &logwatch.LogStreamConsumer{
			Logger:  logger,
			Host:    config.LogRelayHost,
			Tracker: tracker,
		},
		rules:      rules,
		intercepts: intercepts,
		dir:        dir,
		rdb:        rdb,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.HandleHealthCheck)
	e.GET("/api/occupancy", s.HandleGetOccupancy)
	e.GET("/api/session", s.HandleGetSession)
	e.POST("/api/occupants/:id/kick", s.HandleKickOccupant)
	e.GET("/api/interceptions", s.HandleListInterceptions)
	e.DELETE("/api/interceptions/:id", s.HandleRemoveInterception)
	e.POST("/api/evaluate", s.HandleEvaluate)
	e.POST("/api/scan", s.HandleScan)
	e.GET("/api/rules", s.HandleListRules)
	e.GET("/api/rules/:id", s.HandleGetRule)
	e.PUT("/api/rules/:id", s.HandlePutRule)
	e.DELETE("/api/rules/:id", s.HandleDeleteRule)

	s.echo = e
	s.httpd = &http.Server{
		Handler:      e,
		Addr:         config.Bind,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	return s, nil
}

// Run starts the reducer, the log relay consumer, snapshot persistence, and
// the HTTP API, and blocks until the context is cancelled or one of them
// fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.RestoreSnapshot(ctx); err != nil {
		s.logger.Warn("could not restore occupancy snapshot", "err", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.tracker.Run(ctx) })
	eg.Go(func() error { return s.consumer.RunWithReconnect(ctx) })
	eg.Go(func() error { return s.RunPersistSnapshot(ctx) })
	eg.Go(func() error {
		s.logger.Info("starting server", "bind", s.httpd.Addr)
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpd.Shutdown(shutCtx)
	})
	return eg.Wait()
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

var occupancyKey = "groupguard/occupancy"

// RestoreSnapshot reloads the last persisted occupancy state, so a daemon
// restart mid-session does not lose the live entity set.
func (s *Server) RestoreSnapshot(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		s.logger.Info("redis not configured, skipping occupancy snapshot restore")
		return nil
	}

	raw, err := s.rdb.Get(ctx, occupancyKey).Bytes()
	if err == redis.Nil {
		s.logger.Info("no pre-existing occupancy snapshot in redis")
		return nil
	}
	if err != nil {
		return err
	}
	var snap presence.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("parsing persisted occupancy snapshot: %w", err)
	}
	s.tracker.Restore(snap)
	s.logger.Info("restored occupancy snapshot from redis", "entities", len(snap.LiveEntities), "instance", snap.CurrentInstanceID)
	return nil
}

func (s *Server) PersistSnapshot(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(s.tracker.Snapshot())
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, occupancyKey, raw, 24*time.Hour).Err()
}

// this method runs in a loop, persisting the current occupancy state every 5 seconds
func (s *Server) RunPersistSnapshot(ctx context.Context) error {

	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("persisting final occupancy snapshot")
			if err := s.PersistSnapshot(context.Background()); err != nil {
				s.logger.Error("failed to persist occupancy snapshot", "err", err)
			}
			return nil
		case <-ticker.C:
			if err := s.PersistSnapshot(ctx); err != nil {
				s.logger.Error("failed to persist occupancy snapshot", "err", err)
			}
		}
	}
}
