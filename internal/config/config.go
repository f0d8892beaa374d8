package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the bot service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Candidates  []CandidateConfig         `json:"candidates"`
	Generation  GenerationConfig          `json:"generation"`
	Telegram    TelegramConfig            `json:"telegram"`
	Search      SearchConfig              `json:"search"`
	Diagram     DiagramConfig             `json:"diagram"`
	Speech      SpeechConfig              `json:"speech"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout_minutes"`
	HistoryWindow     int    `json:"history_window"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Disabled bool   `json:"disabled"`
}

// CandidateConfig is one entry in the ordered model fallback list.
type CandidateConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
}

type GenerationConfig struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type TelegramConfig struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
}

type SearchConfig struct {
	MaxResults           int    `json:"max_results"`
	GoogleAPIKey         string `json:"google_api_key"`
	GoogleSearchEngineID string `json:"google_search_engine_id"`
}

type DiagramConfig struct {
	RenderBaseURL string `json:"render_base_url"`
}

type SpeechConfig struct {
	TranscribeModel  string `json:"transcribe_model"`
	TranscribeAPIKey string `json:"transcribe_api_key"`
	TTSBaseURL       string `json:"tts_base_url"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Candidates) == 0 {
		return nil, fmt.Errorf("at least one model candidate must be configured")
	}
	for i, cand := range cfg.Candidates {
		if cand.Provider == "" || cand.Model == "" {
			return nil, fmt.Errorf("candidate %d: provider and model are required", i)
		}
	}
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token must be configured")
	}

	if dbCfg, ok := cfg.Databases["sqlite3"]; ok && dbCfg.DSN != "" && dbCfg.DSN != ":memory:" {
		if !filepath.IsAbs(dbCfg.DSN) {
			dbCfg.DSN = filepath.Join(filepath.Dir(absPath), dbCfg.DSN)
			cfg.Databases["sqlite3"] = dbCfg
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.HistoryWindow <= 0 {
		c.BasicConfig.HistoryWindow = 30
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.7
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1000
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 3
	}
	if c.Diagram.RenderBaseURL == "" {
		c.Diagram.RenderBaseURL = "https://mermaid.ink/img"
	}
	if c.Speech.TranscribeModel == "" {
		c.Speech.TranscribeModel = "gemini-2.0-flash"
	}
}
