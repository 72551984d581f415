package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"homedrive/internal/logging"
	"homedrive/internal/queue"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Scheduler profiles for thumbnail generation.
const (
	// SchedulerWorker runs generation on the in-process bounded pool.
	SchedulerWorker = "worker"
	// SchedulerBroker publishes generation requests to the message broker.
	SchedulerBroker = "broker"
)

// Config holds all application configuration.
type Config struct {
	MediaDir    string
	ThumbsDir   string
	DatabaseDir string
	Port        string
	MetricsPort string

	// Thumbnail generation
	DcrawPath     string
	MaxConcurrent int
	Scheduler     string

	// Broker profile (Scheduler == SchedulerBroker)
	AmqpURL        string
	ThumbQueueName string
	Prefetch       int

	// Quota
	DefaultQuota int64

	// Derived
	DatabasePath      string
	ThumbnailsEnabled bool
}

// LoadConfig loads and validates configuration from environment variables.
func LoadConfig() (*Config, error) {
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	thumbsDir := getEnv("THUMBS_REPOSITORY_PATH", "/cache/thumbs")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	dcrawPath := getEnv("DCRAW_PATH", "dcraw_emu")
	maxConcurrent := getEnvInt("THUMBS_MAX_CONCURRENT", queue.DefaultMaxConcurrent)
	scheduler := getEnv("THUMBS_SCHEDULER", SchedulerWorker)
	amqpURL := getEnv("AMQP_URL", "amqp://localhost")
	queueName := getEnv("THUMBS_REQUEST_QUEUE_NAME", "thumb-requests")
	prefetch := getEnvInt("THUMBS_REQUEST_QUEUE_PREFETCH", 1)
	defaultQuota := getEnvInt64("DEFAULT_USER_QUOTA", -1)

	logging.Info("  MEDIA_DIR:                      %s", mediaDir)
	logging.Info("  THUMBS_REPOSITORY_PATH:         %s", thumbsDir)
	logging.Info("  DATABASE_DIR:                   %s", databaseDir)
	logging.Info("  PORT:                           %s", port)
	logging.Info("  METRICS_PORT:                   %s", metricsPort)
	logging.Info("  DCRAW_PATH:                     %s", dcrawPath)
	logging.Info("  THUMBS_MAX_CONCURRENT:          %d", maxConcurrent)
	logging.Info("  THUMBS_SCHEDULER:               %s", scheduler)
	if scheduler == SchedulerBroker {
		logging.Info("  AMQP_URL:                       %s", amqpURL)
		logging.Info("  THUMBS_REQUEST_QUEUE_NAME:      %s", queueName)
		logging.Info("  THUMBS_REQUEST_QUEUE_PREFETCH:  %d", prefetch)
	}
	logging.Info("  DEFAULT_USER_QUOTA:             %d", defaultQuota)
	logging.Info("  LOG_LEVEL:                      %s", logging.GetLevel())

	if scheduler != SchedulerWorker && scheduler != SchedulerBroker {
		return nil, fmt.Errorf("invalid THUMBS_SCHEDULER %q (want %q or %q)",
			scheduler, SchedulerWorker, SchedulerBroker)
	}
	if maxConcurrent < 1 {
		logging.Warn("  Invalid THUMBS_MAX_CONCURRENT, using default: %d", queue.DefaultMaxConcurrent)
		maxConcurrent = queue.DefaultMaxConcurrent
	}
	if prefetch < 1 {
		prefetch = 1
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	thumbsDir, err = filepath.Abs(thumbsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thumbs directory path: %w", err)
	}
	logging.Info("  Thumbs directory (absolute): %s", thumbsDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, err
	}

	// Thumbnails degrade to disabled when the cache dir cannot be used.
	thumbnailsEnabled := true
	if err := ensureDirectory(thumbsDir, "thumbs"); err != nil {
		logging.Warn("  Thumbs directory not usable, thumbnails disabled: %v", err)
		thumbnailsEnabled = false
	}

	return &Config{
		MediaDir:          mediaDir,
		ThumbsDir:         thumbsDir,
		DatabaseDir:       databaseDir,
		Port:              port,
		MetricsPort:       metricsPort,
		DcrawPath:         dcrawPath,
		MaxConcurrent:     maxConcurrent,
		Scheduler:         scheduler,
		AmqpURL:           amqpURL,
		ThumbQueueName:    queueName,
		Prefetch:          prefetch,
		DefaultQuota:      defaultQuota,
		DatabasePath:      filepath.Join(databaseDir, "homedrive.db"),
		ThumbnailsEnabled: thumbnailsEnabled,
	}, nil
}

func logSystemInfo() {
	logging.Info("homedrive %s (commit %s, built %s)", Version, Commit, BuildTime)
	logging.Info("Go %s on %s/%s, %d CPUs", GoVersion, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
}

// ensureDirectory creates the directory if missing and verifies it is
// writable.
func ensureDirectory(dir, label string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s directory %s: %w", label, dir, err)
	}

	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("%s directory %s is not writable: %w", label, dir, err)
	}
	if err := os.Remove(probe); err != nil {
		logging.Warn("  Failed to remove write probe %s: %v", probe, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		logging.Warn("  Invalid %s value %q, using default %d", key, value, fallback)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		logging.Warn("  Invalid %s value %q, using default %d", key, value, fallback)
	}
	return fallback
}

// LogFatal logs a fatal startup error and exits.
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// LogServerStarted announces the listening server.
func LogServerStarted(port string, elapsed time.Duration) {
	logging.Info("------------------------------------------------------------")
	logging.Info("Server listening on :%s (started in %v)", port, elapsed.Round(time.Millisecond))
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs one step of the graceful shutdown sequence.
func LogShutdownStep(msg string) {
	logging.Info("Shutdown: %s", msg)
}
