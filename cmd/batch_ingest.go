/*
Copyright © 2025 quangdm
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quangdm/studyrag-be/service"
	"github.com/quangdm/studyrag-be/utils"
)

// batchIngestCmd represents the batch-ingest command
var batchIngestCmd = &cobra.Command{
	Use:   "batch-ingest",
	Short: "Index every plain-text document in a directory",
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		userID, _ := cmd.Flags().GetString("user")
		courseID, _ := cmd.Flags().GetString("course")
		docType, _ := cmd.Flags().GetString("type")

		if dir == "" || userID == "" {
			log.Fatal("--dir and --user are required")
		}

		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		embedder := buildEmbeddingService(cfg)
		chunker := service.NewChunkerService(cfg.Chunker)
		documentService := service.NewDocumentService(chunker, embedder, store)

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Fatalf("Failed to read directory: %v", err)
		}

		ingested := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".txt" && ext != ".md" {
				log.Printf("Skipping %s: not plain text", entry.Name())
				continue
			}

			path := filepath.Join(dir, entry.Name())
			text, err := utils.ReadDocumentText(path)
			if err != nil {
				log.Printf("Skipping %s: %v", entry.Name(), err)
				continue
			}

			count, err := documentService.IngestText(context.Background(), userID, courseID, entry.Name(), docType, text)
			if err != nil {
				log.Printf("Failed to ingest %s: %v", entry.Name(), err)
				continue
			}
			log.Printf("Ingested %s: %d chunks", entry.Name(), count)
			ingested++
		}

		fmt.Printf("Ingested %d of %d entries\n", ingested, len(entries))
	},
}

func init() {
	rootCmd.AddCommand(batchIngestCmd)
	batchIngestCmd.Flags().StringP("dir", "d", "", "directory of plain-text documents")
	batchIngestCmd.Flags().StringP("user", "u", "", "owning user id")
	batchIngestCmd.Flags().StringP("course", "c", "", "course id (optional)")
	batchIngestCmd.Flags().StringP("type", "t", "", "document type label (optional)")
}
