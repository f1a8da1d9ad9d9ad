/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/slotbell/internal/models"
)

// Attempt is what gets persisted for one Dispatch call.
type Attempt struct {
	EvaluationID string
	Occurrence   string // DDMMYY:slot
	DayTime      string // day:slot
	Endpoint     string
	Payload      Payload
	Outcome      Outcome
}

// Recorder persists attempts to dispatch_logs.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates a recorder over db.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores a. The payload is kept verbatim for offline attempts.
func (r *Recorder) Record(ctx context.Context, a Attempt) error {
	body, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	entry := &models.DispatchLog{
		ID:           uuid.NewString(),
		EvaluationID: a.EvaluationID,
		Occurrence:   a.Occurrence,
		DayTime:      a.DayTime,
		Endpoint:     EndpointURL(a.Endpoint),
		Status:       models.DispatchStatus(a.Outcome.Status),
		StatusCode:   a.Outcome.StatusCode,
		TaskCount:    len(a.Payload.Tasks),
		Payload:      string(body),
	}
	if a.Outcome.Err != nil {
		entry.Error = a.Outcome.Err.Error()
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// Recent returns the newest attempts first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.DispatchLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.DispatchLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list dispatch logs: %w", err)
	}
	return logs, nil
}
