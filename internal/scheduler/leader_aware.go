/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Elector is the part of leadership.Election the scheduler needs.
type Elector interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	LeaderCh() <-chan bool
}

// LeaderAwareLoop runs the Loop only while this instance holds the lease.
// Manual and simulated triggers are unaffected.
type LeaderAwareLoop struct {
	loop     *Loop
	election Elector
	logger   zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewLeaderAware creates a leader-aware wrapper around loop.
func NewLeaderAware(loop *Loop, election Elector, logger zerolog.Logger) *LeaderAwareLoop {
	return &LeaderAwareLoop{
		loop:     loop,
		election: election,
		logger:   logger.With().Str("component", "leader_aware_scheduler").Logger(),
	}
}

// Start begins campaigning and follows leadership changes.
func (las *LeaderAwareLoop) Start(ctx context.Context) error {
	las.logger.Info().Msg("starting leader-aware scheduler")

	las.mu.Lock()
	las.ctx, las.cancel = context.WithCancel(ctx)
	las.mu.Unlock()

	if err := las.election.Start(las.ctx); err != nil {
		return err
	}
	go las.monitorLeadership(las.ctx)
	return nil
}

// Stop halts the loop and gives up leadership.
func (las *LeaderAwareLoop) Stop() error {
	las.logger.Info().Msg("stopping leader-aware scheduler")
	las.mu.Lock()
	if las.cancel != nil {
		las.cancel()
	}
	las.mu.Unlock()
	las.loop.Stop()
	return las.election.Stop()
}

// IsLeader returns whether this instance is the leader.
func (las *LeaderAwareLoop) IsLeader() bool {
	return las.election.IsLeader()
}

func (las *LeaderAwareLoop) monitorLeadership(ctx context.Context) {
	if las.election.IsLeader() {
		las.startLoop(ctx)
	}

	leaderCh := las.election.LeaderCh()
	for {
		select {
		case <-ctx.Done():
			return
		case isLeader := <-leaderCh:
			if isLeader {
				las.logger.Info().Msg("became leader, starting scheduler loop")
				las.startLoop(ctx)
			} else {
				las.logger.Warn().Msg("lost leadership, stopping scheduler loop")
				las.loop.Stop()
			}
		}
	}
}

func (las *LeaderAwareLoop) startLoop(ctx context.Context) {
	if las.loop.Running() {
		return
	}
	if err := las.loop.Start(ctx); err != nil {
		las.logger.Error().Err(err).Msg("failed to start scheduler loop")
	}
}
