// config/appconfig.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey defines a configuration key for an application.
// LoadWithAppConfig loads each key from config files, environment variables,
// and command-line flags.
type AppKey struct {
	// Name is the key name (e.g., "mongo_cluster").
	// This is used as-is for config files and CLI flags.
	// For env vars, it's uppercased and prefixed (e.g., MILD_MONGO_USERNAME).
	Name string

	// Default is the default value if not set elsewhere.
	// Supported types: string, int, int64, bool, []string.
	Default any

	// Desc is a short description for --help output.
	Desc string
}

// AppConfigValues holds the loaded app configuration values.
// Keys are the AppKey.Name values, values are the loaded configuration.
type AppConfigValues map[string]any

// String returns a string value or empty string if not found/wrong type.
func (a AppConfigValues) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// StringSlice returns a []string value or nil if not found/wrong type.
func (a AppConfigValues) StringSlice(key string) []string {
	if v, ok := a[key].([]string); ok {
		return v
	}
	return nil
}

// loadAppConfig resolves app keys with the same precedence as the core
// config: flags > env > config files > defaults. Keys share the EnvPrefix,
// so "mongo_username" is read from MILD_MONGO_USERNAME.
func loadAppConfig(logger *zap.Logger, v *viper.Viper, fs *pflag.FlagSet, keys []AppKey) (AppConfigValues, error) {
	result := make(AppConfigValues, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	for _, key := range keys {
		v.SetDefault(key.Name, key.Default)
		_ = v.BindEnv(key.Name)
		if f := fs.Lookup(key.Name); f != nil && f.Changed {
			_ = v.BindPFlag(key.Name, f)
		}
	}

	for _, key := range keys {
		// Env and flag values arrive as strings; coerce to the default's type.
		switch key.Default.(type) {
		case string:
			result[key.Name] = v.GetString(key.Name)
		case int:
			result[key.Name] = v.GetInt(key.Name)
		case int64:
			result[key.Name] = v.GetInt64(key.Name)
		case bool:
			result[key.Name] = v.GetBool(key.Name)
		case []string:
			arr, err := toStringSlice(v.Get(key.Name))
			if err != nil {
				return nil, fmt.Errorf("config key %q: %w", key.Name, err)
			}
			result[key.Name] = arr
		}
	}

	if logger != nil {
		fields := make([]zap.Field, 0, len(keys))
		for _, key := range keys {
			if isSecretKey(key.Name) {
				fields = append(fields, zap.String(key.Name, "[REDACTED]"))
				continue
			}
			fields = append(fields, zap.Any(key.Name, result[key.Name]))
		}
		logger.Info("app config loaded", fields...)
	}

	return result, nil
}

func isSecretKey(name string) bool {
	n := strings.ToLower(name)
	for _, marker := range []string{"key", "secret", "password", "token"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}

// registerAppFlags registers command-line flags for app config keys.
// Must be called before fs.Parse.
func registerAppFlags(fs *pflag.FlagSet, keys []AppKey) error {
	for _, key := range keys {
		if fs.Lookup(key.Name) != nil {
			return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
		}

		switch d := key.Default.(type) {
		case string:
			fs.String(key.Name, d, key.Desc)
		case int:
			fs.Int(key.Name, d, key.Desc)
		case int64:
			fs.Int64(key.Name, d, key.Desc)
		case bool:
			fs.Bool(key.Name, d, key.Desc)
		case []string:
			fs.String(key.Name, "", key.Desc+" (JSON array)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}
