/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the gorm models for the timetable tables and the
// dispatch log.
package models

import "time"

// SubjectTimeMap places a class's subject on the weekly grid. DTime holds a
// "day:slot" key.
type SubjectTimeMap struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Class     string `gorm:"column:class;size:32;index"`
	TeacherID uint   `gorm:"column:teacher_id;index"`
	Subject   string `gorm:"column:subject;size:64"`
	DTime     string `gorm:"column:DTime;size:8;index"`
}

// TableName keeps the table name used by the timetable editor.
func (SubjectTimeMap) TableName() string { return "subject_time_map" }

// ClassStudentMap holds a class's inclusive roll range and its default room.
type ClassStudentMap struct {
	Class       string  `gorm:"column:class;size:32;primaryKey"`
	USNStart    string  `gorm:"column:USNStart;size:20"`
	USNEnd      string  `gorm:"column:USNEnd;size:20"`
	DefaultRoom *string `gorm:"column:defaultRoom;size:15"`
}

// TableName keeps the table name used by the class editor.
func (ClassStudentMap) TableName() string { return "class_student_map" }

// DispatchStatus is the outcome of one delivery attempt.
type DispatchStatus string

const (
	DispatchOnline  DispatchStatus = "online"
	DispatchOffline DispatchStatus = "offline"
)

// DispatchLog records every attempt to hand a task batch to the downstream
// endpoint. Offline rows keep the full payload for manual recovery.
type DispatchLog struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	EvaluationID string         `gorm:"type:varchar(36);index" json:"evaluationId"`
	Occurrence   string         `gorm:"type:varchar(16);index" json:"occurrence"` // DDMMYY:slot
	DayTime      string         `gorm:"type:varchar(8)" json:"dayTime"`           // day:slot
	Endpoint     string         `gorm:"type:varchar(255)" json:"endpoint"`
	Status       DispatchStatus `gorm:"type:varchar(16);index" json:"status"`
	StatusCode   int            `json:"statusCode,omitempty"`
	TaskCount    int            `json:"taskCount"`
	Payload      string         `gorm:"type:text" json:"payload"`
	Error        string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
