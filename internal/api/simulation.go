/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/daytime"
	"github.com/friendsincode/slotbell/internal/scheduler"
	"github.com/friendsincode/slotbell/internal/slots"
)

// number accepts both 1 and "1" in request bodies.
type number int

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("%q is not a whole number", string(data))
	}
	*n = number(v)
	return nil
}

func (n *number) intPtr() *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

type setTimeRequest struct {
	Time string  `json:"time" validate:"required"`
	Day  *number `json:"day"`
}

type setDayRequest struct {
	Day *number `json:"day" validate:"required"`
}

type triggerSlotRequest struct {
	Slot *number `json:"slot" validate:"required"`
	Day  *number `json:"day"`
}

// resultResponse flattens a Result under a confirmation message. A message
// produced by the evaluation itself takes precedence.
type resultResponse struct {
	Message string `json:"message"`
	scheduler.Result
}

func respondResult(w http.ResponseWriter, confirmation string, res scheduler.Result) {
	msg := confirmation
	if res.Message != "" {
		msg = res.Message
	}
	writeJSON(w, http.StatusOK, resultResponse{Message: msg, Result: res})
}

type statusResponse struct {
	Message string `json:"message"`
	scheduler.Status
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sim.Status())
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sim.History())
}

func (a *API) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req setTimeRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	day := req.Day.intPtr()
	res, err := a.sim.SetSimulatedTime(r.Context(), req.Time, day)
	if err != nil {
		a.writeSimulationError(w, err)
		return
	}
	respondResult(w, "Simulation time set to "+res.Time+onDay(day), res)
}

func (a *API) handleSetDay(w http.ResponseWriter, r *http.Request) {
	var req setDayRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	st, err := a.sim.SetSimulatedDay(int(*req.Day))
	if err != nil {
		a.writeSimulationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Message: "Simulation day set to " + clock.WeekdayName(int(*req.Day)),
		Status:  st,
	})
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Message: "Simulation cleared. Using real time.",
		Status:  a.sim.ClearSimulation(),
	})
}

func (a *API) handleTriggerSlot(w http.ResponseWriter, r *http.Request) {
	var req triggerSlotRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	day := req.Day.intPtr()
	res, err := a.sim.TriggerSlot(r.Context(), int(*req.Slot), day)
	if err != nil {
		a.writeSimulationError(w, err)
		return
	}
	respondResult(w, fmt.Sprintf("Triggered slot %d at %s%s", int(*req.Slot), res.Time, onDay(day)), res)
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	res, err := a.sim.Trigger(r.Context())
	if err != nil {
		a.writeSimulationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func onDay(day *int) string {
	if day == nil {
		return ""
	}
	return " on " + clock.WeekdayName(*day)
}

func (a *API) writeSimulationError(w http.ResponseWriter, err error) {
	var unknown *scheduler.UnknownSlotError
	switch {
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          "slot_not_found",
			"message":        fmt.Sprintf("Slot %d not found", unknown.Slot),
			"availableSlots": unknown.Available,
		})
	case errors.Is(err, daytime.ErrValidation):
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, slots.ErrConfigUnavailable):
		a.logger.Error().Err(err).Msg("slot config unavailable")
		writeErrorMessage(w, http.StatusServiceUnavailable, "config_unavailable", "Config not loaded")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErrorMessage(w, http.StatusServiceUnavailable, "evaluation_busy", err.Error())
	default:
		a.logger.Error().Err(err).Msg("simulation request failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
