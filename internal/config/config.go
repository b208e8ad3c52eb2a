package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the ticker list used when none is configured.
var DefaultSymbols = []string{"SOXX", "URA", "GLD", "UGL"}

// Config holds all application configuration.
type Config struct {
	Symbols    []string `yaml:"symbols"`
	DataSource struct {
		BaseURL   string            `yaml:"base_url"`
		APIKey    string            `yaml:"api_key"`
		SymbolMap map[string]string `yaml:"symbol_map"`
	} `yaml:"data_source"`
	Report struct {
		OutputPath        string   `yaml:"output_path"`
		CSVPath           string   `yaml:"csv_path"`
		Title             string   `yaml:"title"`
		ShowDistance      *bool    `yaml:"show_distance"`
		DistanceThreshold *float64 `yaml:"distance_threshold"`
	} `yaml:"report"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RunCron string `yaml:"run_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// Load reads .env, then the YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		cfg.Report.OutputPath = v
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		cfg.Report.CSVPath = v
	}
	if v := os.Getenv("SYMBOL_MAP"); v != "" {
		m, err := parseSymbolMap(v)
		if err != nil {
			return nil, fmt.Errorf("parse SYMBOL_MAP: %w", err)
		}
		cfg.DataSource.SymbolMap = m
	}
	if v := os.Getenv("DISTANCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("parse DISTANCE_THRESHOLD: %w", err)
		}
		cfg.Report.DistanceThreshold = &f
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_RUN"); v != "" {
		cfg.Schedule.RunCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	cfg.Symbols = normalizeSymbols(cfg.Symbols)
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]string(nil), DefaultSymbols...)
	}
	cfg.DataSource.SymbolMap = normalizeSymbolMap(cfg.DataSource.SymbolMap)
	if cfg.Report.OutputPath == "" {
		cfg.Report.OutputPath = "index.html"
	}
	if cfg.Report.Title == "" {
		cfg.Report.Title = "Sigma Hunter"
	}
	if cfg.Report.ShowDistance == nil {
		show := true
		cfg.Report.ShowDistance = &show
	}
	if cfg.Report.DistanceThreshold == nil {
		threshold := 2.0
		cfg.Report.DistanceThreshold = &threshold
	}
	if cfg.Schedule.RunCron == "" {
		cfg.Schedule.RunCron = "0 30 16 * * 1-5"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// normalizeSymbols upper-cases, trims and de-duplicates, keeping first occurrence order.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// parseSymbolMap reads "GOLD=GLD,CHIPS=SOXX" into a map.
func parseSymbolMap(v string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid entry %q, want SYMBOL=PROVIDER_SYMBOL", pair)
		}
		m[from] = to
	}
	return m, nil
}

// normalizeSymbolMap upper-cases keys so they match normalized symbols.
// Provider symbols are kept as written ("^VIX", "BRK-B").
func normalizeSymbolMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.ToUpper(strings.TrimSpace(k)), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if c.Report.OutputPath == "" {
		return fmt.Errorf("report.output_path is required")
	}
	if t := c.Report.DistanceThreshold; t != nil && (*t < 0 || math.IsNaN(*t) || math.IsInf(*t, 0)) {
		return fmt.Errorf("report.distance_threshold must be a finite non-negative number")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
