package model

import "time"

// Session identifies one authenticated client context. The id itself is
// the bearer credential, so it never appears in logs.
type Session struct {
	ID             string     `db:"id" json:"-"`
	UserID         string     `db:"user_id" json:"userId"`
	TeamID         *string    `db:"team_id" json:"teamId,omitempty"`
	CSRFToken      *string    `db:"csrf_token" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expiresAt"`
	LastAccessed   time.Time  `db:"last_accessed" json:"-"`
	LastActivityAt *time.Time `db:"last_activity_at" json:"-"`
	IPAddress      *string    `db:"ip_address" json:"-"`
	UserAgent      *string    `db:"user_agent" json:"-"`
}

type CreateSessionParams struct {
	ID        string
	UserID    string
	TeamID    *string
	ExpiresAt time.Time
	IPAddress *string
	UserAgent *string
}
