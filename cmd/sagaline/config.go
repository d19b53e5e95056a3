package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all sagaline configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	PoolSize   int    `json:"pool_size"`
	LLMAPIKey  string `json:"llm_api_key"`
	LLMModel   string `json:"llm_model"`
	LLMBaseURL string `json:"llm_base_url"`
	Scheduler  bool   `json:"scheduler"`
}

func defaultConfig() Config {
	return Config{
		DBPath:   filepath.Join(sagalineDir(), "sagaline.db"),
		LogLevel: "info",
		PoolSize: 10,
		LLMModel: "gpt-4o-mini",
	}
}

func sagalineDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sagaline"
	}
	return filepath.Join(home, ".sagaline")
}

func settingsPath() string {
	return filepath.Join(sagalineDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("SAGALINE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SAGALINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SAGALINE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("SAGALINE_LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("SAGALINE_LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("SAGALINE_LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("SAGALINE_SCHEDULER"); v != "" {
		cfg.Scheduler = v == "true" || v == "1"
	}

	return cfg
}
