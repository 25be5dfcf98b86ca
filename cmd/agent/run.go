package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditfile "github.com/vshulcz/Gometra/internal/adapters/audit/file"
	remoteaudit "github.com/vshulcz/Gometra/internal/adapters/audit/remote"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/buffered"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/fanout"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/httpjson"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/prom"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/redistream"
	"github.com/vshulcz/Gometra/internal/adapters/publisher/zaplog"
	sampler "github.com/vshulcz/Gometra/internal/adapters/sampler/runtime"
	"github.com/vshulcz/Gometra/internal/config"
	"github.com/vshulcz/Gometra/internal/domain"
	"github.com/vshulcz/Gometra/internal/ports"
	"github.com/vshulcz/Gometra/internal/services/audit"
	"github.com/vshulcz/Gometra/internal/services/collect"
)

// sinkSet is the assembled publisher chain plus the resources behind it that
// need explicit teardown.
type sinkSet struct {
	pub   ports.Publisher
	redis *redistream.Publisher
	prom  *prom.Publisher
}

func buildSinks(cfg config.AgentConfig, logger *zap.Logger) (*sinkSet, error) {
	s := &sinkSet{}
	var sinks []ports.Publisher

	if cfg.Address != "" {
		hp, err := httpjson.New(cfg.Address, &http.Client{}, cfg.Key)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, hp)
	}
	if cfg.RedisAddr != "" {
		rp, err := redistream.New(cfg.RedisAddr, cfg.RedisStream)
		if err != nil {
			return nil, err
		}
		s.redis = rp
		sinks = append(sinks, rp)
	}
	if cfg.PromAddr != "" {
		s.prom = prom.New()
		sinks = append(sinks, s.prom)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zaplog.New(logger))
	}

	if len(sinks) == 1 {
		s.pub = sinks[0]
	} else {
		s.pub = fanout.New(sinks...)
	}
	return s, nil
}

func (s *sinkSet) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func buildAudit(cfg config.AgentConfig, logger *zap.Logger) (*audit.Subject, error) {
	var observers []audit.Observer
	if cfg.AuditFile != "" {
		observers = append(observers, auditfile.New(cfg.AuditFile))
	}
	if cfg.AuditURL != "" {
		cli, err := remoteaudit.New(cfg.AuditURL, nil)
		if err != nil {
			return nil, err
		}
		observers = append(observers, cli)
	}
	if len(observers) == 0 {
		return nil, nil
	}

	subj := audit.NewSubject(observers...)
	subj.SetErrorHandler(func(err error) {
		logger.Warn("audit notify failed", zap.Error(err))
	})
	return subj, nil
}

func run(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) error {
	sinks, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer sinks.Close()

	buf := buffered.New(sinks.pub, cfg.RateLimit, logger)
	buf.Start(ctx)
	defer buf.Stop()

	subj, err := buildAudit(cfg, logger)
	if err != nil {
		return err
	}

	opts := []collect.Option{collect.WithLogger(logger)}
	if subj != nil {
		opts = append(opts, collect.WithAudit(subj))
	}
	svc := collect.New(collect.Config{
		InitialDelay: cfg.InitialDelay,
		Period:       cfg.ReportInterval,
		StopTimeout:  cfg.StopTimeout,
	}, buf, opts...)

	if err := svc.Start(); err != nil {
		return err
	}
	defer func() {
		if err := svc.Stop(context.Background()); err != nil {
			logger.Warn("service stop", zap.Error(err))
		}
	}()

	base := svc.Context(map[string]string{
		domain.TagNamespace:   "gometra",
		domain.TagApplication: "agent",
		domain.TagRunID:       uuid.NewString(),
	})
	sctx, err := base.ChildContext(domain.TagComponent, "runtime")
	if err != nil {
		return err
	}

	smp := sampler.New(sctx)
	if err := smp.Start(ctx, cfg.PollInterval); err != nil {
		return err
	}
	defer smp.Stop()

	if sinks.prom != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", sinks.prom.Handler())
		promSrv := &http.Server{Addr: cfg.PromAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := promSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("prometheus endpoint failed", zap.Error(err))
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = promSrv.Shutdown(shCtx)
		}()
	}

	logger.Info("agent started",
		zap.String("server", cfg.Address),
		zap.String("redis", cfg.RedisAddr),
		zap.String("prom", cfg.PromAddr),
		zap.Duration("poll", cfg.PollInterval),
		zap.Duration("report", cfg.ReportInterval),
		zap.Int("rate_limit", cfg.RateLimit))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
