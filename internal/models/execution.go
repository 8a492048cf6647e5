package models

import (
	"errors"
	"time"
)

// PipelineStep identifies one stage of the pipeline.
type PipelineStep string

const (
	StepExtract   PipelineStep = "extract"
	StepTransform PipelineStep = "transform"
	StepLoad      PipelineStep = "load"
)

// StepStatus is the outcome recorded for a step execution.
type StepStatus string

const (
	StatusRunning StepStatus = "running"
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
)

// IsValidStep checks if the step name is one of the pipeline stages.
func IsValidStep(s PipelineStep) bool {
	switch s {
	case StepExtract, StepTransform, StepLoad:
		return true
	}
	return false
}

// IsValidStatus checks if the status is a known execution status.
func IsValidStatus(s StepStatus) bool {
	switch s {
	case StatusRunning, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// StepExecution is one append-only audit row in the execution log. Rows
// are never updated after insertion; a step that starts and then finishes
// produces a running row followed by a terminal row.
type StepExecution struct {
	ID              int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	Step            PipelineStep `json:"pipeline_step" gorm:"column:pipeline_step;size:16"`
	Status          StepStatus   `json:"status" gorm:"column:status;size:16"`
	RowsProcessed   int          `json:"rows_processed" gorm:"column:rows_processed"`
	ErrorMessage    string       `json:"error_message,omitempty" gorm:"column:error_message"`
	StartTime       time.Time    `json:"start_time" gorm:"column:start_time"`
	EndTime         *time.Time   `json:"end_time,omitempty" gorm:"column:end_time"`
	DurationSeconds int          `json:"duration_seconds" gorm:"column:duration_seconds"`
	ExecutedAt      time.Time    `json:"executed_at" gorm:"column:executed_at"`
}

// TableName maps StepExecution onto the execution log table.
func (StepExecution) TableName() string {
	return "pipeline_execution_log"
}

// Validate validates a step execution row before insertion.
func (e *StepExecution) Validate() error {
	if !IsValidStep(e.Step) {
		return errors.New("pipeline_step must be extract, transform or load")
	}
	if !IsValidStatus(e.Status) {
		return errors.New("status must be running, success or failed")
	}
	if e.RowsProcessed < 0 {
		return errors.New("rows_processed cannot be negative")
	}
	if e.Status == StatusFailed && e.ErrorMessage == "" {
		return errors.New("failed execution requires an error_message")
	}
	return nil
}
