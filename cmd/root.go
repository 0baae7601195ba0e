/*
Copyright © 2025 quangdm
*/
package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quangdm/studyrag-be/config"
	"github.com/quangdm/studyrag-be/database"
	"github.com/quangdm/studyrag-be/service"
	"github.com/sashabaranov/go-openai"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "studyrag-be",
	Short: "Backend for the course-document study assistant",
	Long: `studyrag-be indexes a student's course documents into a vector store
and answers questions over them with multi-query retrieval and rank fusion.

Run "studyrag-be start" to serve the HTTP API, or use the ingest commands
to index documents from the command line.`,
}

// reinitCmd drops and recreates the chunk class, discarding all indexed
// documents.
var reinitCmd = &cobra.Command{
	Use:   "reinit",
	Short: "Drop and recreate the vector store schema",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		if err := store.ReInit(); err != nil {
			log.Fatalf("Failed to reinitialize vector store: %v", err)
		}
		fmt.Println("Vector store schema recreated")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file")
	rootCmd.AddCommand(reinitCmd)
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func mustOpenStore(cfg *config.Config) *database.WeaviateStore {
	store, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
	if err != nil {
		log.Fatalf("Failed to connect to vector store: %v", err)
	}
	return store
}

// buildAIService picks the chat provider from config.
func buildAIService(cfg *config.Config) service.AIService {
	switch cfg.AIProvider {
	case "gemini":
		ai, err := service.NewGeminiService(cfg.GeminiAPIKeys, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to create Gemini service: %v", err)
		}
		return ai
	default:
		return service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.ChatModel)
	}
}

func buildEmbeddingService(cfg *config.Config) *service.EmbeddingService {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.AIEndpoint != "" {
		clientConfig.BaseURL = cfg.AIEndpoint
	}
	return service.NewEmbeddingService(openai.NewClientWithConfig(clientConfig), cfg.EmbeddingModel)
}

func buildRAGService(cfg *config.Config, store *database.WeaviateStore, embedder *service.EmbeddingService) *service.RAGService {
	searchService := service.NewSearchService(store, embedder)
	return service.NewRAGService(
		searchService,
		store,
		buildAIService(cfg),
		cfg.Retrieval,
		time.Duration(cfg.RequestTimeoutSec)*time.Second,
	)
}
