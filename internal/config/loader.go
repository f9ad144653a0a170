package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// keywordsPlaceholder must appear in every configured template.
const keywordsPlaceholder = "{keywords}"

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the environment, applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Server.JWTSecret != "" && len(cfg.Server.JWTSecret) < 16 {
		slog.Warn("server.jwt_secret is shorter than 16 bytes; tokens are easy to forge")
	}

	// Store
	st := cfg.Store
	switch st.Backend {
	case "", BackendMemory:
	case BackendSQLite:
		if st.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if st.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres backend"))
		}
	case BackendRedis:
		if st.Addr == "" {
			errs = append(errs, errors.New("store.addr is required for the redis backend"))
		}
	case BackendMongo:
		if st.URI == "" {
			errs = append(errs, errors.New("store.uri is required for the mongo backend"))
		}
	default:
		// Custom backends may be registered at runtime.
		slog.Warn("store.backend is not a built-in backend; it must be registered before startup",
			"backend", st.Backend,
		)
	}
	if st.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("store.history_limit %d must not be negative", st.HistoryLimit))
	}
	if st.Backend == BackendMemory && st.FallbackToMemory {
		slog.Warn("store.fallback_to_memory has no effect with the memory backend")
	}
	if st.Breaker.MaxFailures < 0 || st.Breaker.HalfOpenMax < 0 || st.Breaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("store.breaker values must not be negative"))
	}

	// Content
	for i, bank := range cfg.Content.Banks {
		if strings.TrimSpace(bank) == "" {
			errs = append(errs, fmt.Errorf("content.banks[%d] must not be empty", i))
		}
	}

	// Evaluation
	for name, v := range map[string]float64{
		"phonetic_threshold": cfg.Evaluation.PhoneticThreshold,
		"fuzzy_threshold":    cfg.Evaluation.FuzzyThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("evaluation.%s %.2f is out of range [0, 1]", name, v))
		}
	}

	// Tables
	for channel, templates := range cfg.Tables.Templates {
		if len(templates) == 0 {
			errs = append(errs, fmt.Errorf("tables.templates[%q] must list at least one template", channel))
		}
		for i, tmpl := range templates {
			if !strings.Contains(tmpl, keywordsPlaceholder) {
				errs = append(errs, fmt.Errorf("tables.templates[%q][%d] is missing the %s placeholder", channel, i, keywordsPlaceholder))
			}
		}
	}
	for kw, phrases := range cfg.Tables.Phrases {
		if kw != strings.ToLower(kw) {
			errs = append(errs, fmt.Errorf("tables.phrases key %q must be lower-case", kw))
		}
		if len(phrases) == 0 {
			slog.Warn("tables.phrases entry has no phrases", "keyword", kw)
		}
	}

	return errors.Join(errs...)
}
