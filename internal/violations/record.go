// Package violations implements the evidence record domain: building
// records from an active detection set, appending them to the violations
// collection, and reading them back for history, review, and the live feed.
package violations

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review state of a record.
type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusCompleted     Status = "COMPLETED"
	StatusRejected      Status = "REJECTED"
)

// Reviewed reports whether s is a valid review outcome.
func (s Status) Reviewed() bool {
	return s == StatusCompleted || s == StatusRejected
}

// GPS is a latitude/longitude pair.
type GPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Site is the fixed capture context stamped onto every record.
type Site struct {
	Location string
	GPS      GPS
}

// Record is a persisted evidence record. ID, Timestamp, RecordedByUserID,
// and Status are assigned on append and never supplied by the caller.
// A nil Timestamp means the server has not yet acknowledged the write.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	AppID            string     `json:"appId"`
	ViolationTypes   []string   `json:"violationTypes"`
	CaptureTimeLocal time.Time  `json:"captureTimeLocal"`
	Timestamp        *time.Time `json:"timestamp"`
	Location         string     `json:"location"`
	GPS              GPS        `json:"gps"`
	EvidenceURL      string     `json:"evidenceUrl"`
	RecordedByUserID string     `json:"recordedByUserId"`
	Status           Status     `json:"status"`
	ReviewedBy       *string    `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
}

// Processing reports whether the record still awaits its server timestamp.
func (r Record) Processing() bool {
	return r.Timestamp == nil
}

// ReviewCommand moves a record to a reviewed status.
type ReviewCommand struct {
	Status     Status `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
}
