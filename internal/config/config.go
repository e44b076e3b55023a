package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory.
const FileName = ".hprobe.yaml"

type Config struct {
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	Concurrency       int      `yaml:"concurrency"`
	DelayMS           int      `yaml:"delay_ms"`
	RateLimit         float64  `yaml:"rate_limit"`
	RequestBudget     int64    `yaml:"request_budget"`
	ScopeDomain       string   `yaml:"scope_domain"`
	InjectCookies     bool     `yaml:"inject_cookies"`
	BruteDelayMS      int      `yaml:"brute_delay_ms"`
	DataDir           string   `yaml:"data_dir"`
	LogDir            string   `yaml:"log_dir"`
	UserAgent         string   `yaml:"user_agent"`
	PayloadCategories []string `yaml:"payload_categories"`
	RedactionPatterns []string `yaml:"redaction_patterns"`
}

var cache struct {
	mu      sync.RWMutex
	path    string
	exists  bool
	modTime int64
	cfg     Config
}

func Default() Config {
	return Config{
		TimeoutSeconds: 10,
		Concurrency:    10,
		InjectCookies:  true,
		DataDir:        ".hprobe",
		LogDir:         filepath.Join(".hprobe", "logs"),
	}
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

func (c Config) BruteDelay() time.Duration {
	return time.Duration(c.BruteDelayMS) * time.Millisecond
}

// Load returns the config from FileName in the working directory, falling
// back to defaults when the file is absent. The parsed file is cached until
// its modification time changes.
func Load() Config {
	path := FileName
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	st, statErr := os.Stat(path)
	if statErr != nil {
		cache.mu.RLock()
		if cache.path == path && !cache.exists {
			cached := cache.cfg
			cache.mu.RUnlock()
			return cached
		}
		cache.mu.RUnlock()
		d := Default()
		store(path, false, 0, d)
		return d
	}

	modTime := st.ModTime().UnixNano()
	cache.mu.RLock()
	if cache.path == path && cache.exists && cache.modTime == modTime {
		cached := cache.cfg
		cache.mu.RUnlock()
		return cached
	}
	cache.mu.RUnlock()

	cfg, err := LoadFile(path)
	if err != nil {
		return Default()
	}
	store(path, true, modTime, cfg)
	return cfg
}

func store(path string, exists bool, modTime int64, cfg Config) {
	cache.mu.Lock()
	cache.path = path
	cache.exists = exists
	cache.modTime = modTime
	cache.cfg = cfg
	cache.mu.Unlock()
}

// LoadFile decodes path over the defaults. Keys with a wrong type or an
// out-of-range value keep their default.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return Default(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return normalize(cfg), nil
}

func normalize(c Config) Config {
	d := Default()
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.DelayMS < 0 {
		c.DelayMS = d.DelayMS
	}
	if c.RateLimit < 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RequestBudget < 0 {
		c.RequestBudget = d.RequestBudget
	}
	if c.BruteDelayMS < 0 {
		c.BruteDelayMS = d.BruteDelayMS
	}
	c.ScopeDomain = strings.ToLower(strings.TrimSpace(c.ScopeDomain))
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = d.DataDir
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = d.LogDir
	}
	c.PayloadCategories = compact(c.PayloadCategories)
	c.RedactionPatterns = compact(c.RedactionPatterns)
	return c
}

func compact(list []string) []string {
	var out []string
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Keys lists the settable keys in file order.
func Keys() []string {
	return []string{
		"timeout_seconds", "concurrency", "delay_ms", "rate_limit",
		"request_budget", "scope_domain", "inject_cookies", "brute_delay_ms",
		"data_dir", "log_dir", "user_agent", "payload_categories", "redaction_patterns",
	}
}

// Set assigns one key from its string form. List keys take a comma
// separated value.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	invalid := func(err error) error {
		return fmt.Errorf("config %s=%q: %w", key, value, err)
	}
	positive := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, invalid(err)
		}
		if n <= 0 {
			return 0, invalid(errors.New("must be positive"))
		}
		return n, nil
	}
	nonNegative := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, invalid(err)
		}
		if n < 0 {
			return 0, invalid(errors.New("must not be negative"))
		}
		return n, nil
	}

	switch key {
	case "timeout_seconds":
		n, err := positive()
		if err != nil {
			return err
		}
		c.TimeoutSeconds = n
	case "concurrency":
		n, err := positive()
		if err != nil {
			return err
		}
		c.Concurrency = n
	case "delay_ms":
		n, err := nonNegative()
		if err != nil {
			return err
		}
		c.DelayMS = n
	case "brute_delay_ms":
		n, err := nonNegative()
		if err != nil {
			return err
		}
		c.BruteDelayMS = n
	case "rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid(err)
		}
		if f < 0 {
			return invalid(errors.New("must not be negative"))
		}
		c.RateLimit = f
	case "request_budget":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return invalid(err)
		}
		if n < 0 {
			return invalid(errors.New("must not be negative"))
		}
		c.RequestBudget = n
	case "inject_cookies":
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return invalid(err)
		}
		c.InjectCookies = b
	case "scope_domain":
		c.ScopeDomain = strings.ToLower(value)
	case "data_dir":
		if value == "" {
			return invalid(errors.New("must not be empty"))
		}
		c.DataDir = value
	case "log_dir":
		if value == "" {
			return invalid(errors.New("must not be empty"))
		}
		c.LogDir = value
	case "user_agent":
		c.UserAgent = value
	case "payload_categories":
		c.PayloadCategories = compact(strings.Split(value, ","))
	case "redaction_patterns":
		c.RedactionPatterns = compact(strings.Split(value, ","))
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
