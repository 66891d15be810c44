package model

import (
	"fmt"
	"time"
)

// CopyResult summarises one completed run.
type CopyResult struct {
	RunID       string    `json:"runId"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Copied      int       `json:"copied"`
	Batches     int       `json:"batches"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// Duration is the wall time of the run.
func (r *CopyResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is the human-readable completion line.
func (r *CopyResult) Summary() string {
	return fmt.Sprintf("Copied %d docs %s → %s", r.Copied, r.Source, r.Destination)
}

// CopyEvent is the payload carried by copy lifecycle events.
type CopyEvent struct {
	RunID       string `json:"runId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Total       int    `json:"total,omitempty"`
	Copied      int    `json:"copied"`
	Batch       int    `json:"batch,omitempty"`
	BatchSize   int    `json:"batchSize,omitempty"`
	Error       string `json:"error,omitempty"`
}
