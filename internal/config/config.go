package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the viewer and the backend.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	APIBaseURL       string
	APITimeout       time.Duration
	ActionTimeout    time.Duration
	ResyncDelay      time.Duration
	SingleFlight     bool
	HideWhileLoading bool

	BackendListenAddr string
	StoreDriver       string
	StoreDSN          string
	StoreQueryTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()

	return Config{
		ListenAddr:        getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:       time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 35)) * time.Second,
		ShutdownTimeout:   time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		APIBaseURL:        getEnv("APP_API_BASE_URL", "http://127.0.0.1:5000"),
		APITimeout:        time.Duration(getEnvInt("APP_API_TIMEOUT_SEC", 30)) * time.Second,
		ActionTimeout:     time.Duration(getEnvInt("APP_ACTION_TIMEOUT_SEC", 30)) * time.Second,
		ResyncDelay:       time.Duration(getEnvInt("APP_RESYNC_DELAY_MS", 2000)) * time.Millisecond,
		SingleFlight:      getEnvBool("APP_SINGLE_FLIGHT", false),
		HideWhileLoading:  getEnvBool("APP_HIDE_WHILE_LOADING", true),
		BackendListenAddr: getEnv("APP_BACKEND_LISTEN_ADDR", ":5000"),
		StoreDriver:       getEnv("APP_STORE_DRIVER", "sqlite"),
		StoreDSN:          getEnv("APP_STORE_DSN", ""),
		StoreQueryTimeout: time.Duration(getEnvInt("APP_STORE_QUERY_TIMEOUT_SEC", 5)) * time.Second,
		LogLevel:          getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:         getEnv("APP_LOG_FORMAT", "json"),
	}
}

// Settings is the non-secret view of the configuration.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"listen_addr":         c.ListenAddr,
		"api_base_url":        c.APIBaseURL,
		"api_timeout_sec":     int(c.APITimeout / time.Second),
		"action_timeout_sec":  int(c.ActionTimeout / time.Second),
		"resync_delay_ms":     c.ResyncDelay.Milliseconds(),
		"single_flight":       c.SingleFlight,
		"hide_while_loading":  c.HideWhileLoading,
		"backend_listen_addr": c.BackendListenAddr,
		"store_driver":        c.StoreDriver,
		"log_level":           c.LogLevel,
		"log_format":          c.LogFormat,
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./proctable.env",
		"/etc/default/proctable",
	}

	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE"))
	if explicit == "" {
		return
	}
	path := absPath(explicit)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		_ = applyYAMLDefaultsFromFile(path)
	default:
		_ = applyEnvDefaultsFromFile(path)
	}
}

func absPath(candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, candidate)
	}
	return candidate
}

func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		setDefault(key, val)
	}

	return scanner.Err()
}

// applyYAMLDefaultsFromFile reads a flat mapping of APP_* keys to scalars.
func applyYAMLDefaultsFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for key, val := range values {
		key = strings.TrimSpace(key)
		if key == "" || val == nil {
			continue
		}
		switch val.(type) {
		case map[string]any, []any:
			continue
		}
		setDefault(key, fmt.Sprint(val))
	}
	return nil
}

func setDefault(key, val string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, val)
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}
