/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/slotbell/internal/api"
	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/config"
	"github.com/friendsincode/slotbell/internal/db"
	"github.com/friendsincode/slotbell/internal/dispatch"
	"github.com/friendsincode/slotbell/internal/eventbus"
	"github.com/friendsincode/slotbell/internal/events"
	"github.com/friendsincode/slotbell/internal/leadership"
	"github.com/friendsincode/slotbell/internal/logbuffer"
	"github.com/friendsincode/slotbell/internal/schedule"
	"github.com/friendsincode/slotbell/internal/scheduler"
	schedulerstate "github.com/friendsincode/slotbell/internal/scheduler/state"
	"github.com/friendsincode/slotbell/internal/slots"
	"github.com/friendsincode/slotbell/internal/telemetry"
)

// historyRetention bounds how long evaluation records stay queryable.
const historyRetention = 24 * time.Hour

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db                   *gorm.DB
	logBuffer            *logbuffer.Buffer
	api                  *api.API
	bus                  *events.Bus
	natsMirror           *eventbus.NATSMirror
	history              *schedulerstate.Store
	evaluator            *scheduler.Evaluator
	simulation           *scheduler.Service
	loop                 *scheduler.Loop
	leaderAwareScheduler *scheduler.LeaderAwareLoop

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("slotbell-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       events.NewBus(),
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.DBAutoMigrate {
		if err := db.Migrate(database); err != nil {
			return err
		}
		s.logger.Info().Msg("database schema migrated")
	}

	wall := clock.RealClock{Location: s.cfg.Location}
	overlay := clock.NewOverlay(wall)
	source := slots.FileSource{Path: s.cfg.SlotConfigPath}
	query := schedule.NewQuery(schedule.NewGormStore(database), s.logger)
	dispatcher := dispatch.New(s.cfg.DispatchTimeout, s.logger)
	recorder := dispatch.NewRecorder(database)
	s.history = schedulerstate.NewStore(0)

	if s.cfg.NATSURL != "" {
		mirror, err := eventbus.Connect(eventbus.DefaultNATSConfig(s.cfg.NATSURL), s.bus, s.logger)
		if err != nil {
			// Mirroring is optional; the scheduler works without it.
			s.logger.Warn().Err(err).Str("url", s.cfg.NATSURL).Msg("nats unavailable, event mirroring disabled")
		} else {
			s.natsMirror = mirror
			s.DeferClose(mirror.Close)
		}
	}

	s.evaluator = scheduler.NewEvaluator(scheduler.Deps{
		Slots:      source,
		Clock:      overlay,
		Query:      query,
		Dispatcher: dispatcher,
		Recorder:   recorder,
		Bus:        s.bus,
		History:    s.history,
		Wall:       wall,
	}, s.logger)
	s.simulation = scheduler.NewService(s.evaluator, overlay, source, s.bus, s.history, s.logger)
	s.loop = scheduler.NewLoop(s.evaluator, s.logger, scheduler.WithLocation(s.cfg.Location))

	// Setup leader-aware scheduler if leader election is enabled
	if s.cfg.LeaderElectionEnabled {
		electionConfig := leadership.DefaultConfig()
		electionConfig.RedisAddr = s.cfg.RedisAddr
		electionConfig.RedisPassword = s.cfg.RedisPassword
		electionConfig.RedisDB = s.cfg.RedisDB
		if s.cfg.InstanceID != "" {
			electionConfig.InstanceID = s.cfg.InstanceID
		}

		election, err := leadership.NewElection(electionConfig, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}

		s.leaderAwareScheduler = scheduler.NewLeaderAware(s.loop, election, s.logger)
		s.DeferClose(s.leaderAwareScheduler.Stop)

		s.logger.Info().
			Str("redis_addr", s.cfg.RedisAddr).
			Str("instance_id", election.InstanceID()).
			Msg("leader election enabled for scheduler")
	}

	ping := func(ctx context.Context) error { return db.Ping(ctx, database) }
	s.api = api.New(s.simulation, ping, recorder, s.logBuffer, s.logger)
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Start scheduler (leader-aware if configured, otherwise direct)
	if s.leaderAwareScheduler != nil {
		if err := s.leaderAwareScheduler.Start(ctx); err != nil {
			// The campaign retries on its own; a Redis outage only delays leadership.
			s.logger.Error().Err(err).Msg("leader-aware scheduler start failed")
		}
	} else if s.loop != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("scheduler loop exited")
			}
		}()
	}

	if s.natsMirror != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.natsMirror.Run(ctx)
		}()
	}

	// Start database metrics updater
	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	if s.history != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					s.history.Prune(now.Add(-historyRetention))
				}
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := `{"status":"ok"`

		// Add leader status if leader election is enabled
		if s.leaderAwareScheduler != nil {
			if s.leaderAwareScheduler.IsLeader() {
				response += `,"leader":true`
			} else {
				response += `,"leader":false`
			}
		}

		response += `}`
		_, _ = w.Write([]byte(response))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
