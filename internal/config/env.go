package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    Console      bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// ServerConfig describes the processing backend.
type ServerConfig struct {
    BaseURL        string
    UploadPath     string
    ProcessPath    string
    ClearCachePath string
    // RequestTimeout of zero leaves backend calls without a deadline.
    RequestTimeout time.Duration
    MaxUploadBytes int64
    UserAgent      string
}

// ProgressConfig tunes the simulated progress indicator.
type ProgressConfig struct {
    Interval time.Duration
    MaxStep  float64
    Cap      float64
}

// SessionConfig controls snapshot persistence. An empty RedisURL disables it.
type SessionConfig struct {
    RedisURL string
    TTL      time.Duration
}

// ArchiveConfig controls where downloaded results go.
type ArchiveConfig struct {
    DownloadDir     string
    S3Bucket        string
    S3Prefix        string
    S3Region        string
    S3Endpoint      string
    AccessKeyID     string
    SecretAccessKey string
    Password        string
}

// Config is the top-level configuration.
type Config struct {
    Logging     LoggingConfig
    Axiom       AxiomConfig
    Server      ServerConfig
    Progress    ProgressConfig
    Session     SessionConfig
    Archive     ArchiveConfig
    MetricsAddr string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        Console:    parseBool(getEnv("LOG_CONSOLE", "0")),
        File:       getEnv("LOG_FILE", "logs/pagepicker.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "20"), 20),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "5"), 5),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pagepicker",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // Backend defaults match the reference server on port 4999
    cfg.Server = ServerConfig{
        BaseURL:        getEnv("PAGEPICKER_SERVER_URL", "http://localhost:4999"),
        UploadPath:     getEnv("UPLOAD_PATH", "/upload"),
        ProcessPath:    getEnv("PROCESS_PATH", "/process"),
        ClearCachePath: getEnv("CLEAR_CACHE_PATH", "/clear_cache"),
        RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", ""), 0),
        MaxUploadBytes: int64(parseInt(getEnv("MAX_UPLOAD_MB", "50"), 50)) << 20,
        UserAgent:      getEnv("USER_AGENT", "pagepicker"),
    }

    cfg.Progress = ProgressConfig{
        Interval: parseDuration(getEnv("PROGRESS_INTERVAL", "500ms"), 500*time.Millisecond),
        MaxStep:  parseFloat(getEnv("PROGRESS_MAX_STEP", "15"), 15),
        Cap:      parseFloat(getEnv("PROGRESS_CAP", "90"), 90),
    }

    cfg.Session = SessionConfig{
        RedisURL: getEnv("REDIS_URL", ""),
        TTL:      parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),
    }

    cfg.Archive = ArchiveConfig{
        DownloadDir:     getEnv("DOWNLOAD_DIR", "downloads"),
        S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
        S3Prefix:        getEnv("AWS_S3_PREFIX", "results/"),
        S3Region:        getEnv("AWS_REGION", ""),
        S3Endpoint:      getEnv("AWS_S3_ENDPOINT", ""),
        AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
        Password:        getEnv("ARCHIVE_PASSWORD", ""),
    }

    cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
