package config

import (
	"time"

	"etlinspector/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "etl-inspector"
	AppVersion = contracts.Version

	// Upload limits
	DefaultMaxUploadBytes = 50 << 20

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketWriteWait       = 10 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultUploadsDir   = "data/uploads"
	DefaultExportsDir   = "data/exports"
	DefaultLogsDir      = "logs"
	DefaultDatabaseFile = "data/etl_inspector.db"

	// Upload and export sweeping
	DefaultFileRetention = 24 * time.Hour
	DefaultSweepInterval = time.Hour

	// Cache Settings
	ReportCacheDuration = 24 * time.Hour

	// Operation Timeouts
	DefaultAnalysisTimeout = 10 * time.Minute

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSizeMB  = 100
	MaxLogFileAge     = 30 // days
	MaxLogFileBackups = 10

	// Messaging
	ReportCompletedSubject = "etl.report.completed"

	// API
	APIBasePath       = "/api/v1"
	HealthEndpoint    = "/healthz"
	ReadyEndpoint     = "/readyz"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
