package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen        = "Open"
	DisputeStatusUnderReview = "Under Review"
	DisputeStatusResolved    = "Resolved"
)

// Исходы разрешения спора.
const (
	DisputeResolutionRelease = "release"
	DisputeResolutionRefund  = "refund"
	DisputeResolutionResume  = "resume"
)

type Dispute struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	JobID      uuid.UUID  `db:"job_id" json:"jobId"`
	RaisedBy   uuid.UUID  `db:"raised_by" json:"raisedBy"`
	Reason     string     `db:"reason" json:"reason"`
	Status     string     `db:"status" json:"status"`
	Resolution *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy *uuid.UUID `db:"resolved_by" json:"resolvedBy,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
}
