package dto

import (
	"encoding/json"
	"time"

	"golang-signal-engine/internal/entity"
)

// CreateJobRequest is the DTO for enqueuing a new job.
type CreateJobRequest struct {
	Market       string   `json:"market"`
	Mode         string   `json:"mode"`
	SymbolCodes  []string `json:"symbol_codes"`
	PipelineKind string   `json:"pipeline_kind"`
}

// JobResponse is the DTO for API responses containing job details.
type JobResponse struct {
	ID           int64      `json:"id"`
	Market       string     `json:"market"`
	Mode         string     `json:"mode"`
	SymbolCodes  []string   `json:"symbol_codes,omitempty"`
	PipelineKind string     `json:"pipeline_kind"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	RequestedAt  time.Time  `json:"requested_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewJobResponse maps a job entity to its API representation.
func NewJobResponse(job *entity.Job) *JobResponse {
	resp := &JobResponse{
		ID:           job.ID,
		Market:       string(job.Market),
		Mode:         string(job.Mode),
		PipelineKind: job.PipelineKind,
		Status:       string(job.Status),
		Attempts:     job.Attempts,
		RequestedAt:  job.RequestedAt,
		CreatedAt:    job.CreatedAt,
	}
	if len(job.SymbolCodes) > 0 {
		_ = json.Unmarshal(job.SymbolCodes, &resp.SymbolCodes)
	}
	if job.StartedAt.Valid {
		t := job.StartedAt.Time
		resp.StartedAt = &t
	}
	if job.CompletedAt.Valid {
		t := job.CompletedAt.Time
		resp.CompletedAt = &t
	}
	if job.ErrorMessage.Valid {
		resp.ErrorMessage = job.ErrorMessage.String
	}
	return resp
}
