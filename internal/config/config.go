package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingTelegramToken = errors.New("missing TELEGRAM_BOT_TOKEN")
	ErrMissingAPIKey        = errors.New("missing OPENAI_API_KEY (required while ASK_ENABLED is on)")
)

type Config struct {
	TelegramToken string             `yaml:"telegram_token"`
	AllowlistIDs  []int64            `yaml:"allowlist"`
	Allowlist     map[int64]struct{} `yaml:"-"`
	LogUnknown    bool               `yaml:"log_unknown"`
	SetCommands   bool               `yaml:"set_commands"`

	// NotesFile is the JSON document holding every user's notes.
	NotesFile string `yaml:"notes_file"`

	// Completion. AskEnabled=false gives the notes-only bot (no !ask, no key needed).
	AskEnabled    bool          `yaml:"ask_enabled"`
	OpenAIKey     string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	Model         string        `yaml:"model"`
	PersonaFile   string        `yaml:"persona_file"`
	Timeout       time.Duration `yaml:"timeout"`
	HistoryWindow int           `yaml:"history_window"`

	// Output limits for Telegram.
	MaxChunkBytes int `yaml:"max_chunk_bytes"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		SetCommands:   true,
		NotesFile:     "memory.json",
		AskEnabled:    true,
		OpenAIBaseURL: "https://api.openai.com/v1",
		Model:         "gpt-4o-mini",
		PersonaFile:   "persona.txt",
		Timeout:       30 * time.Second,
		HistoryWindow: 6,
		MaxChunkBytes: 3500, // keep under Telegram limits after escaping
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables. Environment always wins.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.TelegramToken = envString("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	if allow := strings.TrimSpace(os.Getenv("TELEGRAM_ALLOWLIST")); allow != "" {
		ids, err := parseAllowlist(allow)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_ALLOWLIST: %w", err)
		}
		cfg.AllowlistIDs = ids
	}
	if len(cfg.AllowlistIDs) > 0 {
		cfg.Allowlist = make(map[int64]struct{}, len(cfg.AllowlistIDs))
		for _, id := range cfg.AllowlistIDs {
			cfg.Allowlist[id] = struct{}{}
		}
	}
	cfg.LogUnknown = envBool("TELEGRAM_LOG_UNKNOWN", cfg.LogUnknown)
	cfg.SetCommands = envBool("TELEGRAM_SET_COMMANDS", cfg.SetCommands)

	cfg.NotesFile = envString("NOTES_FILE", cfg.NotesFile)

	cfg.AskEnabled = envBool("ASK_ENABLED", cfg.AskEnabled)
	cfg.OpenAIKey = envString("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIBaseURL = envString("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.Model = envString("OPENAI_MODEL", cfg.Model)
	cfg.PersonaFile = envString("PERSONA_FILE", cfg.PersonaFile)
	cfg.Timeout = envDuration("COMPLETION_TIMEOUT", cfg.Timeout)
	cfg.HistoryWindow = envInt("HISTORY_WINDOW", cfg.HistoryWindow)

	cfg.MaxChunkBytes = envInt("MAX_CHUNK_BYTES", cfg.MaxChunkBytes)

	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("LOG_FORMAT", cfg.LogFormat)

	if cfg.AskEnabled && cfg.OpenAIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

// RequireTelegram reports a configuration error when the platform token is absent.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return ErrMissingTelegramToken
	}
	return nil
}

// Allowed reports whether chatID may talk to the bot. An empty allowlist admits everyone.
func (c Config) Allowed(chatID int64) bool {
	if len(c.Allowlist) == 0 {
		return true
	}
	_, ok := c.Allowlist[chatID]
	return ok
}

func parseAllowlist(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", p)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, errors.New("empty allowlist")
	}
	return out, nil
}

func envString(key, def string) string {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	return s
}

func envDuration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
