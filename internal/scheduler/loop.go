/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/friendsincode/slotbell/internal/telemetry"
)

// EveryMinute fires at second zero of every wall-clock minute.
const EveryMinute = "* * * * *"

// Loop drives the evaluator once per minute. Ticks never wait for the
// evaluation they start: a tick that finds an evaluation still running is
// skipped.
type Loop struct {
	eval   *Evaluator
	spec   string
	loc    *time.Location
	logger zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	pending sync.WaitGroup
}

// LoopOption customises a Loop.
type LoopOption func(*Loop)

// WithLocation evaluates the cron spec in loc instead of time.Local.
func WithLocation(loc *time.Location) LoopOption {
	return func(l *Loop) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithSpec replaces the minute cadence. Intended for tests.
func WithSpec(spec string) LoopOption {
	return func(l *Loop) { l.spec = spec }
}

// NewLoop creates a stopped loop.
func NewLoop(eval *Evaluator, logger zerolog.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		eval:   eval,
		spec:   EveryMinute,
		loc:    time.Local,
		logger: logger.With().Str("component", "scheduler_loop").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start runs one check immediately and then registers the cadence.
// Evaluations inherit ctx.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return errors.New("scheduler loop already running")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithLocation(l.loc), cron.WithParser(parser), cron.WithLogger(cronLogger{l.logger}))
	if _, err := c.AddFunc(l.spec, func() { l.tick(ctx, SourceTimer) }); err != nil {
		return err
	}
	l.cron = c

	l.tick(ctx, SourceStartup)
	c.Start()
	l.logger.Info().Str("spec", l.spec).Str("location", l.loc.String()).Msg("scheduler loop started")
	return nil
}

// Stop cancels future ticks. In-flight evaluations are left to finish on
// their own.
func (l *Loop) Stop() {
	l.mu.Lock()
	c := l.cron
	l.cron = nil
	l.mu.Unlock()
	if c == nil {
		return
	}
	c.Stop()
	l.logger.Info().Msg("scheduler loop stopped")
}

// Run starts the loop and blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	l.Stop()
	return ctx.Err()
}

// Running reports whether ticks are scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cron != nil
}

func (l *Loop) tick(ctx context.Context, src Source) {
	telemetry.SchedulerTicksTotal.Inc()
	done := l.eval.Go(ctx, src)

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		res, ok := <-done
		if !ok {
			telemetry.SchedulerSkippedTotal.Inc()
			l.logger.Warn().Str("source", string(src)).Msg("previous evaluation still running, tick skipped")
			return
		}
		ev := l.logger.Debug()
		if res.Triggered {
			ev = l.logger.Info()
		}
		ev.Str("evaluation_id", res.EvaluationID).
			Str("source", string(src)).
			Bool("triggered", res.Triggered).
			Str("master_status", string(res.MasterStatus)).
			Str("message", res.Message).
			Msg("evaluation finished")
	}()
}

// wait blocks until every started evaluation has been observed.
func (l *Loop) wait() {
	l.pending.Wait()
}

// cronLogger routes robfig/cron diagnostics through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
