/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors in-process events onto NATS so other services
// (attendance dashboards, audit consumers) can follow slot activity.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/slotbell/internal/events"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "slotbell.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration for url.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "slotbell",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// publisher is the part of *nats.Conn the mirror needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSMirror republishes bus events to NATS subjects.
type NATSMirror struct {
	bus    *events.Bus
	conn   *nats.Conn
	pub    publisher
	nodeID string
	logger zerolog.Logger
}

// Connect dials NATS and returns a mirror for bus.
func Connect(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*NATSMirror, error) {
	logger = logger.With().Str("component", "eventbus").Logger()

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	m := newMirror(bus, conn, logger)
	m.conn = conn
	return m, nil
}

func newMirror(bus *events.Bus, pub publisher, logger zerolog.Logger) *NATSMirror {
	host, _ := os.Hostname()
	return &NATSMirror{
		bus:    bus,
		pub:    pub,
		nodeID: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		logger: logger,
	}
}

// message is the JSON envelope published on NATS.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Run forwards events until ctx is cancelled.
func (m *NATSMirror) Run(ctx context.Context) {
	type tagged struct {
		eventType events.EventType
		payload   events.Payload
	}

	merged := make(chan tagged, 64)
	subs := make(map[events.EventType]events.Subscriber, len(events.All))
	for _, et := range events.All {
		sub := m.bus.Subscribe(et)
		subs[et] = sub
		go func(et events.EventType, sub events.Subscriber) {
			for p := range sub {
				select {
				case merged <- tagged{et, p}:
				case <-ctx.Done():
					return
				}
			}
		}(et, sub)
	}
	defer func() {
		for et, sub := range subs {
			m.bus.Unsubscribe(et, sub)
		}
	}()

	m.logger.Info().Msg("nats event mirror started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("nats event mirror stopping")
			return
		case ev := <-merged:
			if err := m.publish(ev.eventType, ev.payload); err != nil {
				m.logger.Warn().Err(err).Str("event", string(ev.eventType)).Msg("nats publish failed")
			}
		}
	}
}

func (m *NATSMirror) publish(eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    m.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return m.pub.Publish(SubjectPrefix+string(eventType), data)
}

// Close drains the connection.
func (m *NATSMirror) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Drain()
}
