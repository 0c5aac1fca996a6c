package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
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

// Session lifecycle timing. Past startup, reconnect and re-init retry
// forever at these fixed delays.
const (
	QRDebounceInterval       = 30 * time.Second
	ReconnectDelay           = 5 * time.Second
	TeardownGracePeriod      = 1 * time.Second
	AbruptRetryDelay         = 3 * time.Second
	AbruptRetryFallbackDelay = 10 * time.Second
	OperatorReinitDelay      = 1 * time.Second
)

// Startup initialization is the one bounded retry path: after
// InitMaxAttempts failures the process exits non-zero.
const (
	InitMaxAttempts = 3
	InitRetryDelay  = 10 * time.Second
)

// Background job intervals
const (
	RetentionJobInterval = 6 * time.Hour
	KeepAliveInterval    = 14 * time.Minute
)
