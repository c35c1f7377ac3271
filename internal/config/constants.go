package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Retention for the login attempt audit log
const LoginAttemptRetention = 30 * 24 * time.Hour

// SessionPolicy holds the session expiry rules. Each check is
// independently sufficient to expire a session.
type SessionPolicy struct {
	// TTL is the absolute expiration ceiling from creation.
	TTL time.Duration
	// AbsoluteTimeout applies from creation regardless of activity.
	AbsoluteTimeout time.Duration
	// IdleTimeout applies from the last tracked activity, when present.
	IdleTimeout time.Duration
}

func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		TTL:             30 * 24 * time.Hour,
		AbsoluteTimeout: 8 * time.Hour,
		IdleTimeout:     30 * time.Minute,
	}
}

// LoginRateLimitPolicy holds the brute-force lockout rules for login.
type LoginRateLimitPolicy struct {
	MaxAttempts int
	// Window is the trailing span over which failures are counted.
	Window time.Duration
	// LockoutDuration is measured from the most recent failed attempt.
	LockoutDuration time.Duration
}

func DefaultLoginRateLimitPolicy() LoginRateLimitPolicy {
	return LoginRateLimitPolicy{
		MaxAttempts:     5,
		Window:          15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}
