package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Server    ServerConfig              `yaml:"server"`
	Database  DatabaseConfig            `yaml:"database"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Resolver  ResolverConfig            `yaml:"resolver"`
	Approvals ApprovalsConfig           `yaml:"approvals"`
}

type AppConfig struct {
	Name   string `yaml:"name"`
	UserID string `yaml:"user_id"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	Enabled        bool   `yaml:"enabled"`
}

type ResolverConfig struct {
	ExactMatchThreshold   float64 `yaml:"exact_match_threshold"`
	FuzzyMatchThreshold   float64 `yaml:"fuzzy_match_threshold"`
	MaxCandidates         int     `yaml:"max_candidates"`
	MinSemanticSimilarity float64 `yaml:"min_semantic_similarity"`
}

type ApprovalsConfig struct {
	TTL           string `yaml:"ttl"`            // Go duration string, e.g. "24h"
	SweepSchedule string `yaml:"sweep_schedule"` // cron expression
}

// TTLDuration parses the approval TTL, falling back to 24h on bad or
// missing values.
func (a ApprovalsConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(a.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}
	return cfg
}

func defaults() *Config {
	return &Config{
		App:      AppConfig{Name: "donna", UserID: "default"},
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "donna.db"},
		Resolver: ResolverConfig{
			ExactMatchThreshold:   0.95,
			FuzzyMatchThreshold:   0.70,
			MaxCandidates:         5,
			MinSemanticSimilarity: 0.6,
		},
		Approvals: ApprovalsConfig{
			TTL:           "24h",
			SweepSchedule: "*/5 * * * *",
		},
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
