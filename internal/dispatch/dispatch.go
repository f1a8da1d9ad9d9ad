/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dispatch delivers attendance task batches to the master router.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/slotbell/internal/telemetry"
	"github.com/friendsincode/slotbell/internal/usn"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

const maxResponseBody = 64 << 10

// Task asks the device in one room to collect attendance for a roll list.
type Task struct {
	Address string   `json:"address"`
	USNs    []string `json:"usns"`
}

// Payload is the body POSTed to the endpoint.
type Payload struct {
	Tasks []Task `json:"tasks"`
}

// NewTask expands the inclusive roll range for a room.
func NewTask(room, rangeStart, rangeEnd string) Task {
	usns := usn.Expand(rangeStart, rangeEnd)
	if usns == nil {
		usns = []string{}
	}
	return Task{Address: room, USNs: usns}
}

// Status is the endpoint's reachability as seen by one attempt.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Outcome describes one delivery attempt. Any HTTP response, whatever the
// status code, counts as online.
type Outcome struct {
	Status     Status
	StatusCode int
	Body       string
	Err        error
	Duration   time.Duration
}

// Online reports whether the endpoint answered.
func (o Outcome) Online() bool { return o.Status == StatusOnline }

// Dispatcher POSTs payloads to {address}/start.
type Dispatcher struct {
	client *http.Client
	logger zerolog.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Dispatcher) { d.client.Transport = rt }
}

// New creates a dispatcher. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration, logger zerolog.Logger, opts ...Option) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: telemetry.Transport(http.DefaultTransport),
		},
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EndpointURL builds the start URL for address, defaulting to plain HTTP.
func EndpointURL(address string) string {
	base := strings.TrimRight(strings.TrimSpace(address), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return base + "/start"
}

// Dispatch sends payload once. It never retries. When the endpoint is
// unreachable the full payload is logged so the batch can be replayed by
// hand.
func (d *Dispatcher) Dispatch(ctx context.Context, address string, payload Payload) Outcome {
	url := EndpointURL(address)
	ctx, span := telemetry.StartSpan(ctx, "dispatch", "send",
		attribute.String("endpoint", url),
		attribute.Int("tasks", len(payload.Tasks)),
	)
	defer span.End()

	started := time.Now()
	outcome := d.send(ctx, url, payload)
	outcome.Duration = time.Since(started)

	telemetry.DispatchDuration.Observe(outcome.Duration.Seconds())
	telemetry.DispatchTotal.WithLabelValues(string(outcome.Status)).Inc()
	span.SetAttributes(attribute.String("status", string(outcome.Status)), attribute.Int("status_code", outcome.StatusCode))

	if outcome.Online() {
		d.logger.Info().
			Str("endpoint", url).
			Int("status", outcome.StatusCode).
			Int("tasks", len(payload.Tasks)).
			Dur("duration", outcome.Duration).
			Msg("payload delivered to master router")
		return outcome
	}

	telemetry.RecordError(span, outcome.Err)
	body, _ := json.Marshal(payload)
	d.logger.Warn().
		Err(outcome.Err).
		Str("endpoint", url).
		RawJSON("payload", body).
		Msg("master router offline, payload not delivered")
	return outcome
}

func (d *Dispatcher) send(ctx context.Context, url string, payload Payload) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Status: StatusOffline, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Status: StatusOffline, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Slotbell/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Status: StatusOffline, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return Outcome{
		Status:     StatusOnline,
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
}
