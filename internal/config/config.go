package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MONITOR"

// Config stores runtime configuration for the dashboard service.
type Config struct {
	BackendURL     string
	BackendTimeout time.Duration

	EventsInterval   time.Duration
	StatusInterval   time.Duration
	HoneypotInterval time.Duration
	HealthInterval   time.Duration

	HTTPListenAddr   string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	StaticDir        string

	InitialTab    string
	Theme         string
	DisplayZone   *time.Location
	PageTitle     string
	ExportDir     string
	ToastDuration time.Duration

	AnalyticsCacheSize int
	DBPath             string
	AuditRetention     time.Duration

	LogLevel  string
	LogFormat string

	DemoMode       bool
	DemoDirectory  string
	DemoExtensions []string
}

var validTabs = map[string]struct{}{
	"control": {},
	"events":  {},
	"reports": {},
}

// Load reads defaults, an optional YAML file and MONITOR_* environment variables.
// An empty configPath searches ./config/config.yaml and ./config.yaml.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	cfg := Config{
		BackendTimeout:     durationValue(v, "backend.timeout", 8*time.Second),
		EventsInterval:     durationValue(v, "poll.events_interval", time.Second),
		StatusInterval:     durationValue(v, "poll.status_interval", 3*time.Second),
		HoneypotInterval:   durationValue(v, "poll.honeypot_interval", 5*time.Second),
		HealthInterval:     durationValue(v, "poll.health_interval", 10*time.Second),
		HTTPListenAddr:     stringValue(v, "http.listen_address", ":8090"),
		HTTPReadTimeout:    durationValue(v, "http.read_timeout", 10*time.Second),
		HTTPWriteTimeout:   durationValue(v, "http.write_timeout", 60*time.Second),
		StaticDir:          stringValue(v, "http.static_dir", ""),
		InitialTab:         strings.ToLower(stringValue(v, "ui.initial_tab", "control")),
		Theme:              strings.ToLower(stringValue(v, "ui.theme", "light")),
		PageTitle:          stringValue(v, "ui.title", "File Behavior Monitor Dashboard"),
		ExportDir:          stringValue(v, "export.dir", "."),
		ToastDuration:      durationValue(v, "ui.toast_duration", 3*time.Second),
		AnalyticsCacheSize: v.GetInt("analytics.cache_size"),
		DBPath:             stringValue(v, "storage.db_path", "./data/dashboard.db"),
		AuditRetention:     durationValue(v, "storage.audit_retention", 30*24*time.Hour),
		LogLevel:           stringValue(v, "log.level", "info"),
		LogFormat:          strings.ToLower(stringValue(v, "log.format", "text")),
		DemoMode:           v.GetBool("demo.enabled"),
		DemoDirectory:      stringValue(v, "demo.directory", ""),
		DemoExtensions:     v.GetStringSlice("demo.suspicious_extensions"),
	}

	intervals := map[string]time.Duration{
		"poll.events_interval":   cfg.EventsInterval,
		"poll.status_interval":   cfg.StatusInterval,
		"poll.honeypot_interval": cfg.HoneypotInterval,
		"poll.health_interval":   cfg.HealthInterval,
	}
	for key, interval := range intervals {
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", key)
		}
	}

	if _, ok := validTabs[cfg.InitialTab]; !ok {
		return Config{}, fmt.Errorf("ui.initial_tab must be one of control, events, reports")
	}
	if cfg.Theme != "light" && cfg.Theme != "dark" {
		return Config{}, fmt.Errorf("ui.theme must be light or dark")
	}
	if cfg.AnalyticsCacheSize <= 0 {
		return Config{}, fmt.Errorf("analytics.cache_size must be > 0")
	}

	zone, err := time.LoadLocation(stringValue(v, "ui.timezone", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("ui.timezone: %w", err)
	}
	cfg.DisplayZone = zone

	if cfg.DemoMode {
		return cfg, nil
	}

	backendURL := stringValue(v, "backend.url", "http://localhost:8080")
	parsedURL, err := url.Parse(backendURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Config{}, fmt.Errorf("MONITOR_BACKEND_URL must be a valid absolute URL")
	}
	cfg.BackendURL = strings.TrimRight(parsedURL.String(), "/")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:8080")
	v.SetDefault("backend.timeout", "8s")

	v.SetDefault("poll.events_interval", "1s")
	v.SetDefault("poll.status_interval", "3s")
	v.SetDefault("poll.honeypot_interval", "5s")
	v.SetDefault("poll.health_interval", "10s")

	v.SetDefault("http.listen_address", ":8090")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "60s")
	v.SetDefault("http.static_dir", "")

	v.SetDefault("ui.initial_tab", "control")
	v.SetDefault("ui.theme", "light")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("ui.title", "File Behavior Monitor Dashboard")
	v.SetDefault("ui.toast_duration", "3s")

	v.SetDefault("export.dir", ".")
	v.SetDefault("analytics.cache_size", 64)
	v.SetDefault("storage.db_path", "./data/dashboard.db")
	v.SetDefault("storage.audit_retention", "720h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("demo.enabled", false)
	v.SetDefault("demo.directory", "")
	v.SetDefault("demo.suspicious_extensions", []string{"exe", "dll", "bat", "ps1", "jar", "sh"})
}

func durationValue(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err == nil {
		return parsed
	}

	// Accept plain integers as seconds for convenience (e.g. "2" => 2s).
	if seconds, parseErr := strconv.Atoi(value); parseErr == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	return fallback
}

func stringValue(v *viper.Viper, key, fallback string) string {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback
	}

	return value
}

// SetupLogger installs the default slog logger for the configured level and format.
// Logs go to stderr so command output on stdout stays machine-readable.
func SetupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
