/*
Copyright © 2025 quangdm
*/
package cmd

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/quangdm/studyrag-be/handler"
	"github.com/quangdm/studyrag-be/service"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the study assistant server",
	Long:  `Starts the HTTP server exposing document ingestion, retrieval and question answering`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		store := mustOpenStore(cfg)
		embedder := buildEmbeddingService(cfg)
		chunker := service.NewChunkerService(cfg.Chunker)

		documentService := service.NewDocumentService(chunker, embedder, store)
		ragService := buildRAGService(cfg, store, embedder)
		websocketService := service.NewWebsocketService(ragService)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		searchHandler := handler.NewSearchHandler(ragService)
		askHandler := handler.NewAskHandler(ragService)
		documentHandler := handler.NewDocumentHandler(documentService)

		// Setup Gin router
		router := gin.Default()

		// Apply global middleware
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		{
			apiV1.POST("/documents/ingest", documentHandler.HandleIngest)
			apiV1.GET("/documents", documentHandler.HandleList)
			apiV1.DELETE("/documents", documentHandler.HandleDelete)
			apiV1.POST("/documents/search", searchHandler.HandleSearch)
			apiV1.POST("/documents/ask", askHandler.HandleAsk)
			apiV1.GET("/documents/ask/ws", gin.WrapF(websocketService.HandleAsk))
		}
		router.GET("/health", gin.WrapH(websocketService.Health()))

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
