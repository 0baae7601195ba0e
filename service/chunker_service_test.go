package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdm/studyrag-be/types"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("   \n\t "))
	assert.Equal(t, 2, EstimateTokens("hello"))        // ceil(1 * 1.3)
	assert.Equal(t, 4, EstimateTokens("one two three")) // ceil(3 * 1.3)
	assert.Equal(t, 13, EstimateTokens(strings.Repeat("w ", 10)))
}

func TestChunkEmptyInput(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 100, OverlapTokens: 10})

	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n\n\t  "))
}

func TestChunkSingleChunkKeepsParagraphsTogether(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 100, OverlapTokens: 10})

	chunks := chunker.Chunk("first paragraph here\n\nsecond paragraph here")
	require.Len(t, chunks, 1)
	assert.Equal(t, "first paragraph here\n\nsecond paragraph here", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, EstimateTokens(chunks[0].Text), chunks[0].TokenCount)
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 30, OverlapTokens: 10})

	var paragraphs []string
	for p := 0; p < 12; p++ {
		var words []string
		for w := 0; w < 9; w++ {
			words = append(words, fmt.Sprintf("p%dw%d", p, w))
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 30, "chunk %d over budget: %q", chunk.Index, chunk.Text)
		assert.Equal(t, EstimateTokens(chunk.Text), chunk.TokenCount)
	}
}

func TestChunkCoversEveryWord(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 25, OverlapTokens: 5})

	var paragraphs []string
	for p := 0; p < 8; p++ {
		var words []string
		for w := 0; w < 7; w++ {
			words = append(words, fmt.Sprintf("p%dw%d", p, w))
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := chunker.Chunk(text)
	var joined strings.Builder
	for _, chunk := range chunks {
		joined.WriteString(chunk.Text)
		joined.WriteString(" ")
	}
	all := joined.String()
	for _, word := range strings.Fields(text) {
		assert.Contains(t, all, word)
	}
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 20, OverlapTokens: 5})

	makePara := func(p int) string {
		var words []string
		for w := 0; w < 10; w++ {
			words = append(words, fmt.Sprintf("p%dw%d", p, w))
		}
		return strings.Join(words, " ")
	}
	chunks := chunker.Chunk(makePara(0) + "\n\n" + makePara(1))
	require.Len(t, chunks, 2)

	// 5 overlap tokens buy floor(5/1.3) = 3 trailing words.
	prevWords := strings.Fields(chunks[0].Text)
	tail := strings.Join(prevWords[len(prevWords)-3:], " ")
	assert.True(t, strings.HasPrefix(chunks[1].Text, tail),
		"chunk 1 %q does not start with overlap tail %q", chunks[1].Text, tail)
}

func TestChunkParagraphJoinAfterOverlapSeed(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 20, OverlapTokens: 5})

	para := func(p, n int) string {
		var words []string
		for w := 0; w < n; w++ {
			words = append(words, fmt.Sprintf("p%dw%d", p, w))
		}
		return strings.Join(words, " ")
	}
	text := para(0, 10) + "\n\n" + para(1, 5) + "\n\n" + para(2, 5) + "\n\n" + para(3, 5)

	chunks := chunker.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, para(0, 10)+"\n\n"+para(1, 5), chunks[0].Text)
	// The overlap tail joins its first paragraph with a space; every
	// paragraph appended after that keeps the blank-line separator.
	assert.Equal(t, "p1w2 p1w3 p1w4 "+para(2, 5)+"\n\n"+para(3, 5), chunks[1].Text)
}

func TestChunkHandlesCRLFParagraphBreaks(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 100, OverlapTokens: 10})

	chunks := chunker.Chunk("first paragraph here\r\n\r\nsecond paragraph here")
	require.Len(t, chunks, 1)
	assert.Equal(t, "first paragraph here\n\nsecond paragraph here", chunks[0].Text)
}

func TestChunkDegradesToSentences(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 12, OverlapTokens: 2})

	paragraph := "Alpha beta gamma delta epsilon zeta. Brown foxes jump over lazy dogs. " +
		"Cats sleep all day every day. Dogs bark at every passing car."
	chunks := chunker.Chunk(paragraph)
	require.Len(t, chunks, 4)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 12)
	}
	// Each later chunk opens with the previous chunk's final word.
	assert.True(t, strings.HasPrefix(chunks[1].Text, "zeta."))
	assert.Contains(t, chunks[1].Text, "Brown foxes")
}

func TestChunkDegradesToWords(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 500, OverlapTokens: 50})

	// One giant paragraph with no sentence boundaries forces word-level
	// splitting.
	var words []string
	for i := 0; i < 2000; i++ {
		words = append(words, fmt.Sprintf("term%04d", i))
	}
	chunks := chunker.Chunk(strings.Join(words, " "))

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 500)
	}
	assert.Contains(t, chunks[0].Text, "term0000")
	assert.Contains(t, chunks[len(chunks)-1].Text, "term1999")
}

func TestChunkEmitsOversizedWordAsIs(t *testing.T) {
	// A budget of one token is smaller than any single word's estimate, so
	// every word lands in the cannot-split-further branch.
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 1, OverlapTokens: 1})

	long := strings.Repeat("x", 2048)
	chunks := chunker.Chunk("alpha beta\n\n" + long)
	require.Len(t, chunks, 3)
	assert.Equal(t, "alpha", chunks[0].Text)
	assert.Equal(t, "beta", chunks[1].Text)
	assert.Equal(t, long, chunks[2].Text)
}

func TestChunkIndexesAndOffsets(t *testing.T) {
	chunker := NewChunkerService(types.ChunkerConfig{MaxTokens: 20, OverlapTokens: 5})

	var paragraphs []string
	for p := 0; p < 6; p++ {
		var words []string
		for w := 0; w < 9; w++ {
			words = append(words, fmt.Sprintf("p%dw%d", p, w))
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)
	prevStart := 0
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, chunk.Metadata.StartChar+len(chunk.Text), chunk.Metadata.EndChar)
		assert.GreaterOrEqual(t, chunk.Metadata.StartChar, prevStart)
		prevStart = chunk.Metadata.StartChar
	}
}
