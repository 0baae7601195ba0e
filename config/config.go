package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/quangdm/studyrag-be/types"
)

type Config struct {
	Port                string                `mapstructure:"port"`
	UploadDir           string                `mapstructure:"upload_dir"`
	AIProvider          string                `mapstructure:"ai_provider"` // "openai" or "gemini"
	AIEndpoint          string                `mapstructure:"ai_endpoint"`
	ChatModel           string                `mapstructure:"chat_model"`
	EmbeddingModel      string                `mapstructure:"embedding_model"`
	OpenAIAPIKey        string                `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys       []string              `mapstructure:"gemini_api_keys"`
	GeminiModel         string                `mapstructure:"gemini_model"`
	RequestTimeoutSec   int                   `mapstructure:"request_timeout_sec"`
	Chunker             types.ChunkerConfig   `mapstructure:"chunker"`
	Retrieval           types.RetrievalConfig `mapstructure:"retrieval"`
	WeaviateStoreConfig WeaviateStoreConfig   `mapstructure:"weaviate_store_config"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"` // Changed to match env var
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")

	// Defaults for the pipeline knobs
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("chunker.max_tokens", 500)
	v.SetDefault("chunker.overlap_tokens", 50)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_similarity", 0.7)
	v.SetDefault("retrieval.rrf_k", 60)
	v.SetDefault("retrieval.context_window", 2)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
