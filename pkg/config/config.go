package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		APIKeyEnv   string  `yaml:"api_key_env"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		URL        string `yaml:"url"`
		APIKeyEnv  string `yaml:"api_key_env"`
		BatchSize  int    `yaml:"batch_size"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Chunker struct {
		MaxChunkSize int `yaml:"max_chunk_size"`
	} `yaml:"chunker"`

	Retrieval struct {
		MatchThreshold float32 `yaml:"match_threshold"`
		MatchCount     int     `yaml:"match_count"`
	} `yaml:"retrieval"`

	Analysis struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"analysis"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/legallens/config.yaml"),
			"/etc/legallens/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://router.huggingface.co/v1"
	}
	if config.LLM.APIKeyEnv == "" {
		config.LLM.APIKeyEnv = "HUGGINGFACE_API_KEY"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4096
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}

	if config.Embedding.URL == "" {
		config.Embedding.URL = "https://router.huggingface.co/hf-inference/models/BAAI/bge-small-en-v1.5/pipeline/feature-extraction"
	}
	if config.Embedding.APIKeyEnv == "" {
		config.Embedding.APIKeyEnv = "HUGGINGFACE_API_KEY"
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 20
	}
	if config.Embedding.MaxRetries == 0 {
		config.Embedding.MaxRetries = 3
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "legal_docs"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 384 // bge-small-en-v1.5
	}

	if config.Chunker.MaxChunkSize == 0 {
		config.Chunker.MaxChunkSize = 1000
	}

	if config.Retrieval.MatchThreshold == 0 {
		config.Retrieval.MatchThreshold = 0.2
	}
	if config.Retrieval.MatchCount == 0 {
		config.Retrieval.MatchCount = 5
	}

	if config.Analysis.BatchSize == 0 {
		config.Analysis.BatchSize = 10
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if embURL := os.Getenv("EMBEDDING_URL"); embURL != "" {
		config.Embedding.URL = embURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
