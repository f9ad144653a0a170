package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired is set when a field outside the hot-reloadable set
	// changed. RestartFields names the config sections involved.
	RestartRequired bool
	RestartFields   []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	if !serverEqual(oldServer, newServer) {
		d.RestartFields = append(d.RestartFields, "server")
	}
	if old.Store != new.Store {
		d.RestartFields = append(d.RestartFields, "store")
	}
	if !slices.Equal(old.Content.Banks, new.Content.Banks) {
		d.RestartFields = append(d.RestartFields, "content")
	}
	if old.Evaluation != new.Evaluation {
		d.RestartFields = append(d.RestartFields, "evaluation")
	}
	if !tableEqual(old.Tables.Phrases, new.Tables.Phrases) || !tableEqual(old.Tables.Templates, new.Tables.Templates) {
		d.RestartFields = append(d.RestartFields, "tables")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartFields = append(d.RestartFields, "telemetry")
	}
	d.RestartRequired = len(d.RestartFields) > 0

	return d
}

func serverEqual(a, b ServerConfig) bool {
	if a.ListenAddr != b.ListenAddr || a.JWTSecret != b.JWTSecret || a.ShutdownTimeout != b.ShutdownTimeout {
		return false
	}
	switch {
	case a.TLS == nil && b.TLS == nil:
		return true
	case a.TLS == nil || b.TLS == nil:
		return false
	default:
		return *a.TLS == *b.TLS
	}
}

func tableEqual(a, b map[string][]string) bool {
	return maps.EqualFunc(a, b, slices.Equal[[]string])
}
