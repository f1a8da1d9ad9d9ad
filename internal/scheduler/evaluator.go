/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/daytime"
	"github.com/friendsincode/slotbell/internal/dispatch"
	"github.com/friendsincode/slotbell/internal/events"
	"github.com/friendsincode/slotbell/internal/schedule"
	"github.com/friendsincode/slotbell/internal/scheduler/state"
	"github.com/friendsincode/slotbell/internal/slots"
	"github.com/friendsincode/slotbell/internal/telemetry"
)

// sunday is the ISO weekday with no classes.
const sunday = 7

// Source says what started an evaluation.
type Source string

const (
	SourceStartup    Source = "startup"
	SourceTimer      Source = "timer"
	SourceManual     Source = "manual"
	SourceSimulation Source = "simulation"
)

// Result is the outcome of one pipeline run.
type Result struct {
	EvaluationID    string            `json:"evaluationId"`
	Source          Source            `json:"source"`
	Triggered       bool              `json:"triggered"`
	Slot            *int              `json:"slot"`
	Time            string            `json:"time,omitempty"`
	Day             int               `json:"day,omitempty"`
	DayName         string            `json:"dayName,omitempty"`
	EncodedDayTime  string            `json:"encodedDayTime,omitempty"`
	ScheduleEntries []schedule.Entry  `json:"scheduleEntries,omitempty"`
	MasterStatus    dispatch.Status   `json:"masterStatus,omitempty"`
	DataSent        *dispatch.Payload `json:"dataSent,omitempty"`
	Message         string            `json:"message,omitempty"`
	EvaluatedAt     time.Time         `json:"evaluatedAt"`
}

// Dispatcher delivers a task batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, address string, payload dispatch.Payload) dispatch.Outcome
}

// Recorder persists dispatch attempts.
type Recorder interface {
	Record(ctx context.Context, attempt dispatch.Attempt) error
}

// Deps are the collaborators of an Evaluator. Recorder, Bus and History may
// be nil.
type Deps struct {
	Slots      slots.Source
	Clock      clock.Source
	Query      *schedule.Query
	Dispatcher Dispatcher
	Recorder   Recorder
	Bus        events.Publisher
	History    *state.Store
	// Wall is used for the calendar date of the attendance occurrence; it
	// defaults to the local wall clock.
	Wall clock.Clock
}

// Evaluator runs the slot pipeline. At most one evaluation is in flight at
// a time.
type Evaluator struct {
	deps   Deps
	logger zerolog.Logger
	sem    chan struct{}
}

// NewEvaluator creates an evaluator.
func NewEvaluator(deps Deps, logger zerolog.Logger) *Evaluator {
	if deps.Wall == nil {
		deps.Wall = clock.RealClock{}
	}
	return &Evaluator{
		deps:   deps,
		logger: logger.With().Str("component", "scheduler").Logger(),
		sem:    make(chan struct{}, 1),
	}
}

func (e *Evaluator) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Evaluator) tryAcquire() bool {
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Evaluator) release() { <-e.sem }

// Evaluate waits for any running evaluation to finish, then runs one.
func (e *Evaluator) Evaluate(ctx context.Context, src Source) (Result, error) {
	return e.EvaluateWith(ctx, src, nil)
}

// EvaluateWith runs prepare and then the pipeline while holding the
// evaluation guard, so a clock change and the evaluation that observes it
// cannot interleave with another evaluation. If prepare fails nothing is
// evaluated and its error is returned.
func (e *Evaluator) EvaluateWith(ctx context.Context, src Source, prepare func() error) (Result, error) {
	if err := e.acquire(ctx); err != nil {
		return Result{}, fmt.Errorf("wait for running evaluation: %w", err)
	}
	defer e.release()

	if prepare != nil {
		if err := prepare(); err != nil {
			return Result{}, err
		}
	}
	return e.run(ctx, src), nil
}

// TryEvaluate runs an evaluation unless one is already in flight.
func (e *Evaluator) TryEvaluate(ctx context.Context, src Source) (Result, bool) {
	if !e.tryAcquire() {
		return Result{}, false
	}
	defer e.release()
	return e.run(ctx, src), true
}

// Go starts TryEvaluate in the background. The channel yields the result
// and is then closed; it is closed without a value when the evaluation was
// skipped because another one was running.
func (e *Evaluator) Go(ctx context.Context, src Source) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if res, ok := e.TryEvaluate(ctx, src); ok {
			out <- res
		}
	}()
	return out
}

func (e *Evaluator) run(ctx context.Context, src Source) Result {
	started := time.Now()
	res := Result{
		EvaluationID: uuid.NewString(),
		Source:       src,
		EvaluatedAt:  e.deps.Wall.Now(),
	}
	logger := e.logger.With().Str("evaluation_id", res.EvaluationID).Str("source", string(src)).Logger()

	ctx, span := telemetry.StartSpan(ctx, "scheduler", "evaluate",
		attribute.String("evaluation_id", res.EvaluationID),
		attribute.String("source", string(src)),
	)
	defer span.End()

	outcome := e.pipeline(ctx, &res, logger)

	span.SetAttributes(attribute.Bool("triggered", res.Triggered), attribute.String("result", outcome))
	telemetry.EvaluationsTotal.WithLabelValues(string(src), outcome).Inc()
	telemetry.EvaluationDuration.Observe(time.Since(started).Seconds())
	e.remember(res)
	return res
}

// pipeline fills res and returns a short outcome label for metrics.
func (e *Evaluator) pipeline(ctx context.Context, res *Result, logger zerolog.Logger) string {
	cfg, err := e.deps.Slots.Load()
	if err != nil {
		logger.Error().Err(err).Msg("slot config not loaded, skipping evaluation")
		res.Message = "Config not loaded"
		return "config_unavailable"
	}
	for _, w := range cfg.Warnings {
		logger.Warn().Str("problem", w).Msg("slot config problem")
	}

	activeTime, activeDay := e.deps.Clock.Active()
	res.Time = activeTime
	res.Day = activeDay
	res.DayName = clock.WeekdayName(activeDay)

	slot, ok := cfg.Resolve(activeTime)
	if !ok {
		logger.Debug().Str("time", activeTime).Msg("time does not match any slot")
		res.Message = fmt.Sprintf("Time %s does not match any slot", activeTime)
		return "no_slot"
	}
	res.Slot = &slot

	if activeDay == sunday {
		logger.Info().Int("slot", slot).Msg("slot reached on Sunday, no classes")
		res.Message = "No classes on Sunday"
		return "sunday"
	}

	key, err := daytime.NewDayTimeKey(activeDay, slot)
	if err != nil {
		logger.Error().Err(err).Int("day", activeDay).Int("slot", slot).Msg("cannot encode day and slot")
		res.Message = err.Error()
		return "invalid"
	}
	res.EncodedDayTime = key.String()

	logger.Info().
		Int("slot", slot).
		Str("time", activeTime).
		Str("day", res.DayName).
		Str("day_time", key.String()).
		Msg("slot triggered")

	entries := e.deps.Query.Lookup(ctx, key)
	res.ScheduleEntries = entries
	logger.Info().Int("entries", len(entries)).Msg("schedule entries found")

	payload := dispatch.Payload{Tasks: BuildTasks(entries)}
	outcome := e.deps.Dispatcher.Dispatch(ctx, cfg.EndpointAddress, payload)

	res.Triggered = true
	res.MasterStatus = outcome.Status
	res.DataSent = &payload

	e.record(ctx, res, key, slot, cfg.EndpointAddress, payload, outcome, logger)
	e.publish(res, cfg.EndpointAddress, outcome)
	return "triggered"
}

// BuildTasks turns complete entries into tasks, dropping entries without a
// room or roll range.
func BuildTasks(entries []schedule.Entry) []dispatch.Task {
	tasks := make([]dispatch.Task, 0, len(entries))
	for _, entry := range entries {
		if !entry.Complete() {
			continue
		}
		tasks = append(tasks, dispatch.NewTask(entry.Room, entry.RangeStart, entry.RangeEnd))
	}
	return tasks
}

func (e *Evaluator) record(ctx context.Context, res *Result, key daytime.DayTimeKey, slot int, endpoint string, payload dispatch.Payload, outcome dispatch.Outcome, logger zerolog.Logger) {
	if e.deps.Recorder == nil {
		return
	}
	occurrence := ""
	if k, err := daytime.DateSlotFor(res.EvaluatedAt, slot); err == nil {
		occurrence = k.String()
	}
	err := e.deps.Recorder.Record(ctx, dispatch.Attempt{
		EvaluationID: res.EvaluationID,
		Occurrence:   occurrence,
		DayTime:      key.String(),
		Endpoint:     endpoint,
		Payload:      payload,
		Outcome:      outcome,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to record dispatch attempt")
	}
}

func (e *Evaluator) publish(res *Result, endpoint string, outcome dispatch.Outcome) {
	if e.deps.Bus == nil {
		return
	}
	e.deps.Bus.Publish(events.EventSlotTriggered, events.Payload{
		"evaluation_id":   res.EvaluationID,
		"source":          string(res.Source),
		"slot":            *res.Slot,
		"day":             res.Day,
		"time":            res.Time,
		"encoded_daytime": res.EncodedDayTime,
		"tasks":           len(res.DataSent.Tasks),
	})

	eventType := events.EventDispatchOnline
	if !outcome.Online() {
		eventType = events.EventDispatchOffline
	}
	payload := events.Payload{
		"evaluation_id": res.EvaluationID,
		"endpoint":      dispatch.EndpointURL(endpoint),
		"status_code":   outcome.StatusCode,
	}
	if outcome.Err != nil {
		payload["error"] = outcome.Err.Error()
	}
	e.deps.Bus.Publish(eventType, payload)
}

func (e *Evaluator) remember(res Result) {
	if e.deps.History == nil {
		return
	}
	rec := state.Record{
		EvaluationID: res.EvaluationID,
		Source:       string(res.Source),
		Triggered:    res.Triggered,
		Time:         res.Time,
		Day:          res.Day,
		DayTime:      res.EncodedDayTime,
		MasterStatus: string(res.MasterStatus),
		Message:      res.Message,
		At:           res.EvaluatedAt,
	}
	if res.Slot != nil {
		rec.Slot = *res.Slot
	}
	if res.DataSent != nil {
		rec.Tasks = len(res.DataSent.Tasks)
	}
	e.deps.History.Add(rec)
}
