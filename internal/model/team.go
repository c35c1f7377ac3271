package model

import "time"

type TeamRole string

const (
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
	RoleViewer TeamRole = "viewer"
)

func (r TeamRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

type Team struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	AccountType     string     `db:"account_type" json:"accountType"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	CreatedByUserID *string    `db:"created_by_user_id" json:"-"`
	IsArchived      bool       `db:"is_archived" json:"isArchived"`
	ArchivedAt      *time.Time `db:"archived_at" json:"-"`
}

type TeamMembership struct {
	ID       string    `db:"id" json:"id"`
	TeamID   string    `db:"team_id" json:"teamId"`
	UserID   string    `db:"user_id" json:"userId"`
	Role     TeamRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}

// TeamMember joins a membership with the member's user record for
// listing endpoints.
type TeamMember struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Role         TeamRole  `db:"role" json:"role"`
	Avatar       *string   `db:"avatar" json:"avatar,omitempty"`
	Availability bool      `db:"availability" json:"availability"`
	JoinedAt     time.Time `db:"joined_at" json:"joinedAt"`
}

type Invitation struct {
	ID              string     `db:"id" json:"id"`
	TeamID          string     `db:"team_id" json:"teamId"`
	Email           string     `db:"email" json:"email"`
	Role            TeamRole   `db:"role" json:"role"`
	InvitedByUserID string     `db:"invited_by_user_id" json:"-"`
	Token           string     `db:"token" json:"-"`
	ExpiresAt       time.Time  `db:"expires_at" json:"expiresAt"`
	AcceptedAt      *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

type CreateInvitationParams struct {
	TeamID          string
	Email           string
	Role            TeamRole
	InvitedByUserID string
	Token           string
	ExpiresAt       time.Time
}
