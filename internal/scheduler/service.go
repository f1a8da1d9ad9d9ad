/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/daytime"
	"github.com/friendsincode/slotbell/internal/events"
	"github.com/friendsincode/slotbell/internal/scheduler/state"
	"github.com/friendsincode/slotbell/internal/slots"
	"github.com/friendsincode/slotbell/internal/telemetry"
)

// UnknownSlotError is returned by TriggerSlot for a slot missing from the
// configuration.
type UnknownSlotError struct {
	Slot      int
	Available []string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("slot %d not found, available slots: %s", e.Slot, strings.Join(e.Available, ", "))
}

// Status is the simulation control view.
type Status struct {
	SimulationMode      bool              `json:"simulationMode"`
	State               clock.State       `json:"state"`
	SimulatedTime       *string           `json:"simulatedTime"`
	SimulatedDay        *int              `json:"simulatedDay"`
	SimulatedDayName    *string           `json:"simulatedDayName"`
	RealTime            string            `json:"realTime"`
	RealDay             int               `json:"realDay"`
	RealDayName         string            `json:"realDayName"`
	ActiveTime          string            `json:"activeTime"`
	ActiveDay           int               `json:"activeDay"`
	ActiveDayName       string            `json:"activeDayName"`
	Slots               map[string]string `json:"slots"`
	MasterRouterAddress *string           `json:"masterRouterAddress"`
	DayOptions          map[string]string `json:"dayOptions"`
	LastEvaluation      *state.Record     `json:"lastEvaluation,omitempty"`
}

// Service is the simulation and manual trigger surface. Every entry point
// that evaluates goes through the shared Evaluator and its guard.
type Service struct {
	eval    *Evaluator
	overlay *clock.Overlay
	slots   slots.Source
	bus     events.Publisher
	history *state.Store
	logger  zerolog.Logger
}

// NewService creates the control surface. bus and history may be nil.
func NewService(eval *Evaluator, overlay *clock.Overlay, source slots.Source, bus events.Publisher, history *state.Store, logger zerolog.Logger) *Service {
	return &Service{
		eval:    eval,
		overlay: overlay,
		slots:   source,
		bus:     bus,
		history: history,
		logger:  logger.With().Str("component", "simulation").Logger(),
	}
}

// SetSimulatedTime simulates hhmm (and day when non-nil) and evaluates
// immediately. Invalid input is rejected before the clock changes.
func (s *Service) SetSimulatedTime(ctx context.Context, hhmm string, day *int) (Result, error) {
	return s.eval.EvaluateWith(ctx, SourceSimulation, func() error {
		normalized, err := s.overlay.SetTime(hhmm, day)
		if err != nil {
			return err
		}
		ev := s.logger.Info().Str("time", normalized)
		if day != nil {
			ev = ev.Int("day", *day)
		}
		ev.Msg("simulation time set")
		s.simulationChanged()
		return nil
	})
}

// SetSimulatedDay simulates the day only and does not evaluate.
func (s *Service) SetSimulatedDay(day int) (Status, error) {
	if err := s.overlay.SetDay(day); err != nil {
		return Status{}, err
	}
	s.logger.Info().Int("day", day).Str("day_name", clock.WeekdayName(day)).Msg("simulation day set")
	s.simulationChanged()
	return s.Status(), nil
}

// ClearSimulation returns to the real clock.
func (s *Service) ClearSimulation() Status {
	s.overlay.Clear()
	s.logger.Info().Msg("simulation cleared, using real time")
	s.simulationChanged()
	return s.Status()
}

// TriggerSlot simulates the configured start time of slot (and day when
// non-nil) and evaluates.
func (s *Service) TriggerSlot(ctx context.Context, slot int, day *int) (Result, error) {
	cfg, err := s.slots.Load()
	if err != nil {
		return Result{}, err
	}
	slotTime, ok := cfg.TimeOf(slot)
	if !ok {
		return Result{}, &UnknownSlotError{Slot: slot, Available: cfg.Indexes()}
	}
	return s.SetSimulatedTime(ctx, slotTime, day)
}

// Trigger evaluates now with whatever the clock currently reports.
func (s *Service) Trigger(ctx context.Context) (Result, error) {
	return s.eval.Evaluate(ctx, SourceManual)
}

// Status reports real, simulated and active values plus the slot table.
// A missing slot config yields empty slots and a nil address.
func (s *Service) Status() Status {
	snap := s.overlay.Snapshot()
	st := Status{
		SimulationMode: snap.Simulated,
		State:          snap.State,
		RealTime:       snap.RealTime,
		RealDay:        snap.RealDay,
		RealDayName:    clock.WeekdayName(snap.RealDay),
		ActiveTime:     snap.ActiveTime,
		ActiveDay:      snap.ActiveDay,
		ActiveDayName:  clock.WeekdayName(snap.ActiveDay),
		Slots:          map[string]string{},
		DayOptions:     daytime.DayOptions(),
	}
	if snap.SimulatedTime != "" {
		t := snap.SimulatedTime
		st.SimulatedTime = &t
	}
	if snap.SimulatedDay != 0 {
		d := snap.SimulatedDay
		name := clock.WeekdayName(d)
		st.SimulatedDay = &d
		st.SimulatedDayName = &name
	}

	if cfg, err := s.slots.Load(); err == nil {
		st.Slots = cfg.StringSlots()
		addr := cfg.EndpointAddress
		st.MasterRouterAddress = &addr
	}
	if s.history != nil {
		if last, ok := s.history.Last(); ok {
			st.LastEvaluation = &last
		}
	}
	return st
}

// History returns recent evaluations, newest first.
func (s *Service) History() []state.Record {
	if s.history == nil {
		return []state.Record{}
	}
	return s.history.Recent()
}

func (s *Service) simulationChanged() {
	snap := s.overlay.Snapshot()
	if snap.Simulated {
		telemetry.SimulationActive.Set(1)
	} else {
		telemetry.SimulationActive.Set(0)
	}
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.EventSimulationChanged, events.Payload{
		"state":       string(snap.State),
		"active_time": snap.ActiveTime,
		"active_day":  snap.ActiveDay,
	})
}
