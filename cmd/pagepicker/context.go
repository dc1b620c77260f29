package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/pagepicker/internal/backend"
	"github.com/local/pagepicker/internal/config"
	"github.com/local/pagepicker/internal/controller"
	logpkg "github.com/local/pagepicker/internal/logger"
	"github.com/local/pagepicker/internal/metrics"
	"github.com/local/pagepicker/internal/progress"
	"github.com/local/pagepicker/internal/shell"
	"github.com/local/pagepicker/internal/storage"
	"github.com/local/pagepicker/internal/store"
)

// commandContext carries configuration and long-lived resources shared by
// every subcommand.
type commandContext struct {
	envFile *string
	server  *string

	cfg        config.Config
	metricsSrv *http.Server
	sessions   *store.RedisSessions
}

func newCommandContext(envFile, server *string) *commandContext {
	return &commandContext{envFile: envFile, server: server}
}

func (c *commandContext) init() error {
	if path := strings.TrimSpace(*c.envFile); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	c.cfg = config.FromEnv()
	if c.server != nil && strings.TrimSpace(*c.server) != "" {
		c.cfg.Server.BaseURL = strings.TrimSpace(*c.server)
	}

	if err := logpkg.Init(logpkg.Options{
		Level:        c.cfg.Logging.Level,
		Pretty:       c.cfg.Logging.Pretty,
		Console:      c.cfg.Logging.Console,
		File:         c.cfg.Logging.File,
		MaxSizeMB:    c.cfg.Logging.MaxSizeMB,
		MaxBackups:   c.cfg.Logging.MaxBackups,
		MaxAgeDays:   c.cfg.Logging.MaxAgeDays,
		Compress:     c.cfg.Logging.Compress,
		SendToAxiom:  c.cfg.Axiom.Send && c.cfg.Axiom.APIKey != "",
		AxiomAPIKey:  c.cfg.Axiom.APIKey,
		AxiomOrgID:   c.cfg.Axiom.OrgID,
		AxiomDataset: c.cfg.Axiom.Dataset,
		AxiomFlush:   c.cfg.Axiom.FlushInterval,
	}); err != nil {
		return err
	}

	metrics.Init()
	if addr := c.cfg.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		c.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := c.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
			}
		}()
		log.Info().Str("addr", addr).Msg("metrics listening")
	}

	if c.cfg.Session.RedisURL != "" {
		rs, err := store.NewRedisSessions(c.cfg.Session.RedisURL, c.cfg.Session.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("session store unavailable, continuing without it")
		} else {
			c.sessions = rs
		}
	}
	return nil
}

func (c *commandContext) close() {
	if c.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = c.metricsSrv.Shutdown(ctx)
		cancel()
		c.metricsSrv = nil
	}
	if c.sessions != nil {
		_ = c.sessions.Close()
		c.sessions = nil
	}
	logpkg.Close()
}

func (c *commandContext) newBackend() (*backend.Client, error) {
	s := c.cfg.Server
	return backend.New(backend.Config{
		BaseURL:        s.BaseURL,
		UploadPath:     s.UploadPath,
		ProcessPath:    s.ProcessPath,
		ClearCachePath: s.ClearCachePath,
		Timeout:        s.RequestTimeout,
		UserAgent:      s.UserAgent,
	})
}

// newController wires a controller to the backend, the progress simulator
// and, when configured, the session store.
func (c *commandContext) newController(sessionID string) (*controller.Controller, error) {
	be, err := c.newBackend()
	if err != nil {
		return nil, err
	}
	sim := progress.New(progress.Options{
		Interval: c.cfg.Progress.Interval,
		MaxStep:  c.cfg.Progress.MaxStep,
		Cap:      c.cfg.Progress.Cap,
	})
	ctrl, err := controller.New(controller.Options{
		Backend:        be,
		Progress:       sim,
		MaxUploadBytes: c.cfg.Server.MaxUploadBytes,
		SessionID:      sessionID,
	})
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// resume restores a stored session into ctrl and then starts mirroring.
func (c *commandContext) resume(ctx context.Context, ctrl *controller.Controller, restore bool) error {
	if c.sessions == nil {
		if restore {
			return errors.New("resume needs REDIS_URL")
		}
		return nil
	}
	if restore {
		snap, ok, err := c.sessions.Load(ctx, ctrl.SessionID())
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if !ok {
			return fmt.Errorf("session %s not found", ctrl.SessionID())
		}
		if err := ctrl.Restore(snap); err != nil {
			return err
		}
	}
	ctrl.Subscribe(store.NewMirror(c.sessions, 2*time.Second))
	return nil
}

// sinks resolves download targets: s3://bucket/key goes to S3, an existing
// directory or a path ending in a separator collects files by name, any
// other path is the exact destination. An empty target uses the archive
// bucket when one is configured and the download directory otherwise.
func (c *commandContext) sinks() shell.SinkFactory {
	a := c.cfg.Archive
	s3Opts := func(bucket, key string) storage.S3Options {
		return storage.S3Options{
			Bucket:          bucket,
			Key:             key,
			Region:          a.S3Region,
			Endpoint:        a.S3Endpoint,
			AccessKeyID:     a.AccessKeyID,
			SecretAccessKey: a.SecretAccessKey,
			Password:        a.Password,
		}
	}
	return func(ctx context.Context, target string) (controller.Sink, error) {
		target = strings.TrimSpace(target)
		if target == "" {
			if a.S3Bucket != "" {
				return storage.NewS3Sink(ctx, s3Opts(a.S3Bucket, a.S3Prefix))
			}
			return storage.LocalSink{Dir: a.DownloadDir}, nil
		}
		if bucket, key, ok := storage.ParseS3URL(target); ok {
			return storage.NewS3Sink(ctx, s3Opts(bucket, key))
		}
		if strings.HasSuffix(target, string(filepath.Separator)) || strings.HasSuffix(target, "/") {
			return storage.LocalSink{Dir: target}, nil
		}
		if fi, err := os.Stat(target); err == nil && fi.IsDir() {
			return storage.LocalSink{Dir: target}, nil
		}
		return storage.LocalSink{Path: target}, nil
	}
}
