package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ADCACHE_APPID.
const EnvPrefix = "ADCACHE"

// Load reads a TOML, YAML or JSON file (chosen by extension), applies
// ADCACHE_* environment overrides and defaults, and validates the result.
// An empty path loads defaults and environment only.
func Load(path string) (Snapshot, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Snapshot{}, fmt.Errorf("read config: %w", err)
		}
	}

	var snap Snapshot
	if err := v.Unmarshal(&snap, viper.DecodeHook(durationDecodeHook())); err != nil {
		return Snapshot{}, fmt.Errorf("decode config: %w", err)
	}

	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}

	absCache, err := filepath.Abs(snap.CacheDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve cache dir: %w", err)
	}
	snap.CacheDir = absCache

	return snap, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("Endpoint", d.Endpoint)
	v.SetDefault("APIVersion", d.APIVersion)
	v.SetDefault("SDKVersion", d.SDKVersion)
	v.SetDefault("ClientName", d.ClientName)
	v.SetDefault("AppID", "")
	v.SetDefault("AppSignature", "")
	v.SetDefault("Sandbox", d.Sandbox)
	v.SetDefault("DSPDemoApp", "")
	v.SetDefault("CheckEmbeddedStatus", d.CheckEmbeddedStatus)
	v.SetDefault("CacheDir", d.CacheDir)
	v.SetDefault("TemplateTTLDays", d.TemplateTTLDays)
	v.SetDefault("PrefetchConcurrency", d.PrefetchConcurrency)
	v.SetDefault("DownloadTimeout", d.DownloadTimeout.String())
	v.SetDefault("MaxCacheBytes", d.MaxCacheBytes)
	v.SetDefault("MaxUnits", d.MaxUnits)
	v.SetDefault("WindowMaxBytes", d.WindowMaxBytes)
	v.SetDefault("Window", d.Window.String())
	v.SetDefault("LogLevel", d.LogLevel)
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", d.LogMaxSize)
	v.SetDefault("LogMaxBackups", d.LogMaxBackups)
	v.SetDefault("LogCompress", d.LogCompress)
	v.SetDefault("RedisAddr", "")
	v.SetDefault("TrackingKey", d.TrackingKey)
	v.SetDefault("TrackingMaxLen", d.TrackingMaxLen)
	v.SetDefault("ListenAddr", d.ListenAddr)
}

// durationDecodeHook accepts Go duration strings ("30s") as well as plain
// numbers, which are read as seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(time.Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			raw := strings.TrimSpace(v)
			if raw == "" {
				return time.Duration(0), nil
			}
			if parsed, err := time.ParseDuration(raw); err == nil {
				return parsed, nil
			}
			if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			return nil, fmt.Errorf("invalid duration value: %s", v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case time.Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported duration type: %T", v)
		}
	}
}
