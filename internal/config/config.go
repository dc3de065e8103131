package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything grrctl needs to reach and use the console API.
type Config struct {
	APIURL         string
	UserAgent      string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	DownloadCheck  time.Duration
	DownloadDir    string
	CacheSize      int
	LogLevel       string
	Theme          string
}

const (
	defaultConfigPath    = "~/.config/grrctl/config.toml"
	defaultDownloadDir   = "~/Downloads/grrctl"
	defaultAPIURL        = "http://127.0.0.1:8000"
	defaultUserAgent     = "grrctl/0.1"
	defaultTimeout       = 30 * time.Second
	defaultPollInterval  = time.Second
	defaultDownloadCheck = 500 * time.Millisecond
	defaultCacheSize     = 128
	defaultLogLevel      = "info"
	defaultTheme         = "Nightfox"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		UserAgent:      defaultUserAgent,
		RequestTimeout: defaultTimeout,
		PollInterval:   defaultPollInterval,
		DownloadCheck:  defaultDownloadCheck,
		DownloadDir:    mustExpand(defaultDownloadDir),
		CacheSize:      defaultCacheSize,
		LogLevel:       defaultLogLevel,
		Theme:          defaultTheme,
	}
}

// Load locates and parses the grrctl config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL           string `toml:"api_url"`
		UserAgent        string `toml:"user_agent"`
		RequestTimeoutMS int64  `toml:"request_timeout_ms"`
		PollIntervalMS   int64  `toml:"poll_interval_ms"`
		DownloadCheckMS  int64  `toml:"download_check_ms"`
		DownloadDir      string `toml:"download_dir"`
		CacheSize        *int   `toml:"cache_size"`
		LogLevel         string `toml:"log_level"`
		Theme            string `toml:"theme"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.UserAgent); v != "" {
		cfg.UserAgent = v
	}
	if raw.RequestTimeoutMS > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}
	if raw.PollIntervalMS > 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}
	if raw.DownloadCheckMS > 0 {
		cfg.DownloadCheck = time.Duration(raw.DownloadCheckMS) * time.Millisecond
	}
	if v := strings.TrimSpace(raw.DownloadDir); v != "" {
		cfg.DownloadDir = mustExpand(v)
	}
	if raw.CacheSize != nil {
		cfg.CacheSize = *raw.CacheSize
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}

	return cfg, nil
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
