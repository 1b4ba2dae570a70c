package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/legallens/legallens/pkg/analyzer"
	"github.com/legallens/legallens/pkg/chunker"
	cfgPkg "github.com/legallens/legallens/pkg/config"
	"github.com/legallens/legallens/pkg/consultant"
	"github.com/legallens/legallens/pkg/embedder"
	"github.com/legallens/legallens/pkg/llm"
	"github.com/legallens/legallens/pkg/logger"
	"github.com/legallens/legallens/pkg/session"
	"github.com/legallens/legallens/pkg/store"
	"github.com/legallens/legallens/server"
)

type Config struct {
	Serve       bool
	Port        string
	BaseURL     string
	EmbedURL    string
	DBUrl       string
	Model       string
	ChunkSize   int
	VectorDim   int
	TableName   string
	BatchSize   int
	MaxTokens   int
	Temperature float64
	LogLevel    string

	// File-only settings, no flag equivalents
	MatchThreshold float32
	MatchCount     int
	AnalysisBatch  int
	MaxRetries     int
	LogJSON        bool
	LLMAPIKeyEnv   string
	EmbedAPIKeyEnv string
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.BoolVar(&config.Serve, "serve", false, "Run the HTTP server instead of the interactive console")
	flag.StringVar(&config.Port, "port", "", "HTTP server port")
	flag.StringVar(&config.BaseURL, "llm-url", "", "OpenAI-compatible base URL for generation")
	flag.StringVar(&config.EmbedURL, "embed-url", "", "Feature-extraction endpoint for embeddings")
	flag.StringVar(&config.DBUrl, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&config.Model, "model", "", "Generation model to use")
	flag.IntVar(&config.ChunkSize, "chunk-size", 0, "Maximum size of text chunks")
	flag.IntVar(&config.VectorDim, "vector-dim", 0, "Vector dimension")
	flag.StringVar(&config.TableName, "table", "", "PostgreSQL table name")
	flag.IntVar(&config.BatchSize, "batch-size", 0, "Batch size for embedding requests")
	flag.IntVar(&config.MaxTokens, "max-tokens", 0, "Maximum tokens for LLM response")
	flag.Float64Var(&config.Temperature, "temperature", 0, "Set the LLM temperature")
	flag.StringVar(&config.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return mergeFileConfig(config, cfg)
}

// mergeFileConfig fills config from the loaded file. Command line flags win
// where both are set; settings without a flag come straight from the file.
func mergeFileConfig(config Config, cfg *cfgPkg.Config) Config {
	if config.Port == "" {
		config.Port = cfg.Server.Port
	}
	if config.BaseURL == "" {
		config.BaseURL = cfg.LLM.BaseURL
	}
	if config.EmbedURL == "" {
		config.EmbedURL = cfg.Embedding.URL
	}
	if config.DBUrl == "" {
		config.DBUrl = cfg.Database.URL
	}
	if config.Model == "" {
		config.Model = cfg.LLM.Model
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = cfg.Chunker.MaxChunkSize
	}
	if config.VectorDim == 0 {
		config.VectorDim = cfg.Database.VectorDim
	}
	if config.TableName == "" {
		config.TableName = cfg.Database.TableName
	}
	if config.BatchSize == 0 {
		config.BatchSize = cfg.Embedding.BatchSize
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = cfg.LLM.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = cfg.LLM.Temperature
	}
	if config.LogLevel == "" {
		config.LogLevel = cfg.Log.Level
	}

	config.MatchThreshold = cfg.Retrieval.MatchThreshold
	config.MatchCount = cfg.Retrieval.MatchCount
	config.AnalysisBatch = cfg.Analysis.BatchSize
	config.MaxRetries = cfg.Embedding.MaxRetries
	config.LogJSON = cfg.Log.JSON
	config.LLMAPIKeyEnv = cfg.LLM.APIKeyEnv
	config.EmbedAPIKeyEnv = cfg.Embedding.APIKeyEnv

	return config
}

func run(config Config) error {
	lg := logger.New(logger.Config{Level: config.LogLevel, JSON: config.LogJSON})

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: config.DBUrl,
		TableName:  config.TableName,
		VectorDim:  config.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	engine, err := llm.NewWithConfig(llm.EngineConfig{
		BaseURL:     config.BaseURL,
		APIKey:      os.Getenv(config.LLMAPIKeyEnv),
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generation engine: %v", err)
	}

	client := embedder.NewClientWithConfig(embedder.ClientConfig{
		URL:        config.EmbedURL,
		APIKey:     os.Getenv(config.EmbedAPIKeyEnv),
		MaxRetries: config.MaxRetries,
	})
	batcher := embedder.NewBatcherWithConfig(client, embedder.BatcherConfig{
		BatchSize: config.BatchSize,
		Logger:    lg,
	})

	pipeline := analyzer.NewPipeline(chunker.New(config.ChunkSize), batcher, vectorStore, engine, analyzer.PipelineConfig{
		AnalysisBatchSize: config.AnalysisBatch,
		Logger:            lg,
	})

	answerer := consultant.NewWithConfig(client, vectorStore, engine, consultant.AnswererConfig{
		MatchThreshold: config.MatchThreshold,
		MatchCount:     config.MatchCount,
		Logger:         lg,
	})

	if config.Serve {
		sessions, err := session.NewWithConfig(session.StoreConfig{ConnString: config.DBUrl})
		if err != nil {
			return fmt.Errorf("failed to initialize session store: %v", err)
		}
		defer sessions.Close()

		srv := server.New(pipeline, answerer, engine, sessions, server.Config{
			Port:   config.Port,
			Logger: lg,
		})
		return srv.Run()
	}

	return runConsole(pipeline, answerer, engine)
}
