/*
Copyright © 2025 quangdm
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quangdm/studyrag-be/service"
	"github.com/quangdm/studyrag-be/utils"
)

// ingestDocumentCmd represents the ingest-document command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest-document",
	Short: "Index a plain-text document into the vector store",
	Long: `Reads an extracted plain-text document (.txt or .md), chunks it,
embeds the chunks in one batch and writes them to the vector store under
the given user and course.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		userID, _ := cmd.Flags().GetString("user")
		courseID, _ := cmd.Flags().GetString("course")
		docType, _ := cmd.Flags().GetString("type")
		reinit, _ := cmd.Flags().GetBool("reinit")

		if filePath == "" || userID == "" {
			log.Fatal("--file and --user are required")
		}

		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		if reinit {
			if err := store.ReInit(); err != nil {
				log.Fatalf("Failed to reinitialize vector store: %v", err)
			}
		}

		embedder := buildEmbeddingService(cfg)
		chunker := service.NewChunkerService(cfg.Chunker)
		documentService := service.NewDocumentService(chunker, embedder, store)

		text, err := utils.ReadDocumentText(filePath)
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}

		fileName := filepath.Base(filePath)
		count, err := documentService.IngestText(context.Background(), userID, courseID, fileName, docType, text)
		if err != nil {
			log.Fatalf("Failed to ingest document: %v", err)
		}

		if cfg.UploadDir != "" {
			if _, err := utils.CopyFileWithTimestamp(filePath, cfg.UploadDir); err != nil {
				log.Printf("Warning: failed to archive %s: %v", filePath, err)
			}
		}

		fmt.Printf("Ingested %s: %d chunks\n", fileName, count)
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)
	ingestDocumentCmd.Flags().StringP("file", "f", "", "path to the plain-text document")
	ingestDocumentCmd.Flags().StringP("user", "u", "", "owning user id")
	ingestDocumentCmd.Flags().StringP("course", "c", "", "course id (optional)")
	ingestDocumentCmd.Flags().StringP("type", "t", "", "document type label (optional)")
	ingestDocumentCmd.Flags().Bool("reinit", false, "recreate the vector store schema first")
}
