// Package config holds the immutable configuration snapshot shared by the
// cache, request and client packages, and the loader that builds it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Snapshot is one immutable version of the client configuration.
// Components receive a Snapshot by value; a new configuration is
// published through Holder.Swap.
type Snapshot struct {
	// Version is assigned by Holder and increases with every swap.
	Version uint64 `mapstructure:"-"`

	// Backend
	Endpoint            string `mapstructure:"Endpoint"`
	APIVersion          string `mapstructure:"APIVersion"`
	SDKVersion          string `mapstructure:"SDKVersion"`
	ClientName          string `mapstructure:"ClientName"`
	AppID               string `mapstructure:"AppID"`
	AppSignature        string `mapstructure:"AppSignature"`
	Sandbox             bool   `mapstructure:"Sandbox"`
	DSPDemoApp          string `mapstructure:"DSPDemoApp"`
	CheckEmbeddedStatus bool   `mapstructure:"CheckEmbeddedStatus"`

	// Asset cache
	CacheDir            string        `mapstructure:"CacheDir"`
	TemplateTTLDays     int           `mapstructure:"TemplateTTLDays"`
	PrefetchConcurrency int           `mapstructure:"PrefetchConcurrency"`
	DownloadTimeout     time.Duration `mapstructure:"DownloadTimeout"`

	// Eviction limits. Carried for compatibility with the backend
	// configuration document; nothing enforces them yet.
	MaxCacheBytes  int64         `mapstructure:"MaxCacheBytes"`
	MaxUnits       int           `mapstructure:"MaxUnits"`
	WindowMaxBytes int64         `mapstructure:"WindowMaxBytes"`
	Window         time.Duration `mapstructure:"Window"`

	// Logging
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// Tracking
	RedisAddr      string `mapstructure:"RedisAddr"`
	TrackingKey    string `mapstructure:"TrackingKey"`
	TrackingMaxLen int64  `mapstructure:"TrackingMaxLen"`

	// Agent
	ListenAddr string `mapstructure:"ListenAddr"`
}

// Default returns a configuration usable for local development.
// AppID and AppSignature must still be supplied.
func Default() Snapshot {
	return Snapshot{
		Endpoint:            "https://live.chartboost.com",
		APIVersion:          "8.1.0",
		SDKVersion:          "9.8.0",
		ClientName:          "Chartboost-Go-SDK",
		CheckEmbeddedStatus: true,
		CacheDir:            "./data",
		TemplateTTLDays:     7,
		PrefetchConcurrency: 4,
		DownloadTimeout:     30 * time.Second,
		Window:              24 * time.Hour,
		LogLevel:            "info",
		LogMaxSize:          100,
		LogMaxBackups:       10,
		LogCompress:         true,
		TrackingKey:         "adcache:events",
		TrackingMaxLen:      1000,
		ListenAddr:          ":8080",
	}
}

// UserAgent is the value of the client identification header.
func (s Snapshot) UserAgent() string {
	return fmt.Sprintf("%s %s", s.ClientName, s.SDKVersion)
}

// Validate checks the snapshot for values no component can work with.
func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.AppID) == "" {
		return newFieldError("AppID", "must not be empty")
	}
	if strings.TrimSpace(s.AppSignature) == "" {
		return newFieldError("AppSignature", "must not be empty")
	}
	if err := validateEndpoint(s.Endpoint); err != nil {
		return fmt.Errorf("Endpoint: %w", err)
	}
	if s.APIVersion == "" {
		return newFieldError("APIVersion", "must not be empty")
	}
	if s.CacheDir == "" {
		return newFieldError("CacheDir", "must not be empty")
	}
	if s.TemplateTTLDays < 0 {
		return newFieldError("TemplateTTLDays", "must not be negative")
	}
	if s.PrefetchConcurrency <= 0 {
		return newFieldError("PrefetchConcurrency", "must be greater than 0")
	}
	if s.DownloadTimeout <= 0 {
		return newFieldError("DownloadTimeout", "must be greater than 0")
	}
	if s.MaxCacheBytes < 0 || s.MaxUnits < 0 || s.WindowMaxBytes < 0 {
		return newFieldError("MaxCacheBytes/MaxUnits/WindowMaxBytes", "must not be negative")
	}
	if s.TrackingMaxLen < 0 {
		return newFieldError("TrackingMaxLen", "must not be negative")
	}
	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("missing backend endpoint")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http/https supported: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint has no host: %s", raw)
	}
	return nil
}

// FieldError names the offending field and the reason it was rejected.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}
