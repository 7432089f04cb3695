package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"etlinspector/internal/detector"
)

// EnvPrefix namespaces every environment variable, e.g. ETL_SERVER_PORT.
const EnvPrefix = "ETL"

// ConfigFileEnv names the variable pointing at a YAML config file.
const ConfigFileEnv = "ETL_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Detection DetectionConfig `yaml:"detection" envconfig:"DETECTION"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Events    EventsConfig    `yaml:"events" envconfig:"EVENTS"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB   int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups  int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays  int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress    bool   `yaml:"compress" envconfig:"COMPRESS"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative
// directories resolve against BaseDir, or the executable's directory when
// BaseDir is empty.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	// FileRetention is how long orphaned uploads and exports are kept.
	// Zero disables sweeping.
	FileRetention time.Duration `yaml:"file_retention" envconfig:"FILE_RETENTION"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT"`
}

// DetectionConfig selects checks and tunes their thresholds.
type DetectionConfig struct {
	Checks        []string `yaml:"checks" envconfig:"CHECKS"`
	MediumRatio   float64  `yaml:"medium_ratio" envconfig:"MEDIUM_RATIO"`
	HighRatio     float64  `yaml:"high_ratio" envconfig:"HIGH_RATIO"`
	MaxNameLength int      `yaml:"max_name_length" envconfig:"MAX_NAME_LENGTH"`
	MaxExamples   int      `yaml:"max_examples" envconfig:"MAX_EXAMPLES"`
	ExampleLength int      `yaml:"example_length" envconfig:"EXAMPLE_LENGTH"`
	Parallel      bool     `yaml:"parallel" envconfig:"PARALLEL"`
	MaxRows       int      `yaml:"max_rows" envconfig:"MAX_ROWS"`
}

// Thresholds maps the config onto detector thresholds.
func (d DetectionConfig) Thresholds() detector.Thresholds {
	return detector.Thresholds{
		MediumRatio:   d.MediumRatio,
		HighRatio:     d.HighRatio,
		MaxNameLength: d.MaxNameLength,
		MaxExamples:   d.MaxExamples,
		ExampleLength: d.ExampleLength,
	}
}

// Options maps the config onto detector options.
func (d DetectionConfig) Options() detector.Options {
	return detector.Options{
		Checks:     slices.Clone(d.Checks),
		Thresholds: d.Thresholds(),
		Parallel:   d.Parallel,
	}
}

// JobsConfig sizes the background analysis queue.
type JobsConfig struct {
	Workers   int           `yaml:"workers" envconfig:"WORKERS"`
	QueueSize int           `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retention time.Duration `yaml:"retention" envconfig:"RETENTION"`
}

// StoreConfig configures the report history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"DB_PATH"`
}

// CacheConfig configures the Redis report cache. An empty RedisAddr
// disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	Password  string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" envconfig:"REDIS_DB"`
	TTL       time.Duration `yaml:"ttl" envconfig:"TTL"`
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// EventsConfig configures NATS publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL        string        `yaml:"nats_url" envconfig:"NATS_URL"`
	Subject        string        `yaml:"subject" envconfig:"SUBJECT"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
}

// Enabled reports whether a NATS URL is configured.
func (e EventsConfig) Enabled() bool {
	return e.NATSURL != ""
}

// SheetsConfig enables sheets:// sources.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// ExportConfig configures report rendering.
type ExportConfig struct {
	ChromePath string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	PDFTimeout time.Duration `yaml:"pdf_timeout" envconfig:"PDF_TIMEOUT"`
	EnablePDF  bool          `yaml:"enable_pdf" envconfig:"ENABLE_PDF"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	StdoutTraces  bool    `yaml:"stdout_traces" envconfig:"STDOUT_TRACES"`
	SampleRate    float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE"`
}

// Load builds the configuration from defaults, then the YAML file if one
// is found, then ETL_* environment variables.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the
// file keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validOutputs = []string{"console", "file", "both"}
	validFormats = []string{"json", "text"}
)

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if !slices.Contains(validOutputs, c.Logging.Output) {
		return fmt.Errorf("invalid log output %q", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	for _, name := range c.Detection.Checks {
		if !slices.Contains(detector.CheckNames, name) {
			return fmt.Errorf("unknown check %q in detection.checks", name)
		}
	}
	if err := c.Detection.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid detection thresholds: %w", err)
	}
	if c.Detection.MaxRows < 0 {
		return fmt.Errorf("detection max rows must not be negative")
	}

	if c.Paths.FileRetention > 0 && c.Paths.SweepInterval <= 0 {
		return fmt.Errorf("paths sweep interval must be positive when file retention is set")
	}

	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs workers must be positive")
	}
	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("jobs queue size must be positive")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store path is required when the store is enabled")
	}
	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Events.Enabled() && c.Events.Subject == "" {
		return fmt.Errorf("events subject is required when nats is configured")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be within [0, 1]")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	th := detector.DefaultThresholds()
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
			MaxHeaderBytes:  1 << 20,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			Output:     "console",
			FilePath:   "logs/app.log",
			MaxSizeMB:  MaxLogFileSizeMB,
			MaxBackups: MaxLogFileBackups,
			MaxAgeDays: MaxLogFileAge,
			Compress:   true,
		},
		Paths: PathsConfig{
			DataDir:       DefaultDataDir,
			UploadsDir:    DefaultUploadsDir,
			ExportsDir:    DefaultExportsDir,
			LogsDir:       DefaultLogsDir,
			FileRetention: DefaultFileRetention,
			SweepInterval: DefaultSweepInterval,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			WriteWait:       WebSocketWriteWait,
		},
		Detection: DetectionConfig{
			MediumRatio:   th.MediumRatio,
			HighRatio:     th.HighRatio,
			MaxNameLength: th.MaxNameLength,
			MaxExamples:   th.MaxExamples,
			ExampleLength: th.ExampleLength,
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
			Timeout:   DefaultAnalysisTimeout,
			Retention: time.Hour,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    DefaultDatabaseFile,
		},
		Cache: CacheConfig{
			TTL: ReportCacheDuration,
		},
		Events: EventsConfig{
			Subject:        ReportCompletedSubject,
			ConnectTimeout: 5 * time.Second,
		},
		Export: ExportConfig{
			PDFTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			Environment:   "development",
			EnableTracing: true,
			EnableMetrics: true,
			SampleRate:    1.0,
		},
	}
}
