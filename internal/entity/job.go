package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// JobMode selects between one-off historical processing and market-hours
// driven processing.
type JobMode string

const (
	JobModeBackfill JobMode = "backfill"
	JobModeRealtime JobMode = "realtime"
)

// JobStatus is the lifecycle state of a scheduled job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of scheduled work for a market. SymbolCodes is the set of
// tickers to process; empty means all active symbols of the market.
type Job struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	Market       MarketType     `gorm:"not null;index" json:"market"`
	Mode         JobMode        `gorm:"not null" json:"mode"`
	SymbolCodes  datatypes.JSON `gorm:"type:jsonb" json:"symbol_codes"`
	PipelineKind string         `gorm:"not null;default:generic" json:"pipeline_kind"`
	Status       JobStatus      `gorm:"not null;default:pending;index" json:"status"`
	Attempts     int            `gorm:"not null;default:0" json:"attempts"`
	RequestedAt  time.Time      `gorm:"not null" json:"requested_at"`
	StartedAt    sql.NullTime   `json:"started_at"`
	CompletedAt  sql.NullTime   `json:"completed_at"`
	ErrorMessage sql.NullString `json:"error_message"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobPayload is the message body carried on the job streams. The scheduler
// marshals it into the stream entry's payload field and the workers decode
// it back out.
type JobPayload struct {
	JobID        int64      `json:"job_id"`
	Market       MarketType `json:"market"`
	Mode         JobMode    `json:"mode"`
	SymbolCodes  []string   `json:"symbol_codes,omitempty"`
	PipelineKind string     `json:"pipeline_kind"`
	Attempt      int        `json:"attempt"`
}
