package model

import "time"

// LoginAttempt is an immutable audit record. Rows are only inserted,
// pruned by retention, or bulk-deleted (failed rows) after a successful
// login.
type LoginAttempt struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	IPAddress     *string   `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent     *string   `db:"user_agent" json:"userAgent,omitempty"`
	AttemptedAt   time.Time `db:"attempted_at" json:"attemptedAt"`
	Success       bool      `db:"success" json:"success"`
	FailureReason *string   `db:"failure_reason" json:"failureReason,omitempty"`
}

type RecordLoginAttemptParams struct {
	Email         string
	IPAddress     *string
	UserAgent     *string
	Success       bool
	FailureReason *string
}
