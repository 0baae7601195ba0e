/*
Copyright © 2025 quangdm
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed documents",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID, _ := cmd.Flags().GetString("user")
		courseID, _ := cmd.Flags().GetString("course")
		if userID == "" {
			log.Fatal("--user is required")
		}

		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		embedder := buildEmbeddingService(cfg)
		ragService := buildRAGService(cfg, store, embedder)

		answer, sources, err := ragService.Ask(context.Background(), args[0], userID, courseID)
		if err != nil {
			log.Fatalf("Failed to answer question: %v", err)
		}

		fmt.Println(answer)
		if len(sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range sources {
				if src.Similarity > 0 {
					fmt.Printf("  %s (chunk %d, similarity %.2f)\n", src.FileName, src.ChunkIndex, src.Similarity)
				} else {
					fmt.Printf("  %s (chunk %d, context)\n", src.FileName, src.ChunkIndex)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("user", "u", "", "owning user id")
	askCmd.Flags().StringP("course", "c", "", "course id (optional)")
}
