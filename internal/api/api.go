/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/friendsincode/slotbell/internal/logbuffer"
	"github.com/friendsincode/slotbell/internal/models"
	"github.com/friendsincode/slotbell/internal/scheduler"
)

// DispatchLog lists persisted dispatch attempts.
type DispatchLog interface {
	Recent(ctx context.Context, limit int) ([]models.DispatchLog, error)
}

// Pinger checks the schedule store.
type Pinger func(ctx context.Context) error

// API exposes HTTP handlers.
type API struct {
	sim        *scheduler.Service
	ping       Pinger
	dispatches DispatchLog
	logBuffer  *logbuffer.Buffer
	validate   *validator.Validate
	logger     zerolog.Logger
}

// New creates the API router wrapper. ping, dispatches and logBuf may be nil.
func New(sim *scheduler.Service, ping Pinger, dispatches DispatchLog, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &API{
		sim:        sim,
		ping:       ping,
		dispatches: dispatches,
		logBuffer:  logBuf,
		validate:   v,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every endpoint under /api.
func (a *API) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/logs", a.handleLogs)
		r.Get("/dispatches", a.handleDispatches)

		r.Route("/simulation", func(r chi.Router) {
			r.Get("/status", a.handleStatus)
			r.Get("/history", a.handleHistory)
			r.Post("/set-time", a.handleSetTime)
			r.Post("/set-day", a.handleSetDay)
			r.Post("/clear", a.handleClear)
			r.Post("/trigger-slot", a.handleTriggerSlot)
			r.Post("/trigger", a.handleTrigger)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ping(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("health check: database unreachable")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "log_buffer_unavailable", "Log buffer not available")
		return
	}

	q := r.URL.Query()
	params := logbuffer.QueryParams{
		Level:        q.Get("level"),
		Component:    q.Get("component"),
		EvaluationID: q.Get("evaluation_id"),
		Search:       q.Get("search"),
		Descending:   q.Get("order") != "asc",
		Limit:        500,
	}
	if since := q.Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			params.Since = t
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": a.logBuffer.Query(params),
		"stats":   a.logBuffer.Stats(),
	})
}

func (a *API) handleDispatches(w http.ResponseWriter, r *http.Request) {
	if a.dispatches == nil {
		writeJSON(w, http.StatusOK, []models.DispatchLog{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := a.dispatches.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("list dispatch logs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// decodeJSON decodes the body into dst and runs struct validation. It
// writes the 400 response itself and reports whether decoding succeeded.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeErrorMessage(w, http.StatusBadRequest, fe.Field()+"_"+fe.Tag(), fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
			return false
		}
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
