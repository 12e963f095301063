package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus defines the lifecycle state of a background job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a persisted background task (email dispatch, certificate issuance).
// Jobs are executed asynchronously after enqueue and re-driven by the
// scheduler until they succeed or exhaust their attempts.
type Job struct {
	gorm.Model
	Type        string         `gorm:"type:varchar(50);not null;index" json:"type"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	Status      JobStatus      `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	MaxAttempts int            `gorm:"default:5" json:"maxAttempts"`
	LastError   string         `gorm:"type:text" json:"lastError"`
	RunAfter    time.Time      `gorm:"index" json:"runAfter"`
}
