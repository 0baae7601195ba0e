package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quangdm/studyrag-be/database"
	"github.com/quangdm/studyrag-be/types"
)

const (
	DefaultRRFK          = 60
	DefaultContextWindow = 2
	// MaxQueryVariations bounds the fan-out: the original query plus the
	// generated rephrasings.
	MaxQueryVariations = 3
)

const answerInstruction = "You are a study assistant. Answer the student's question using only the " +
	"course material excerpts provided. When the excerpts do not contain the answer, say so " +
	"instead of guessing. Reference excerpts by their number when helpful."

// RAGService is the query fusion layer: it fans a question out over
// several phrasings, merges the ranked lists with reciprocal rank fusion,
// widens the survivors with neighboring chunks, and grounds the chat model
// in the result.
type RAGService struct {
	search      *SearchService
	store       database.ChunkStore
	ai          AIService
	retrieval   types.RetrievalConfig
	callTimeout time.Duration
}

func NewRAGService(search *SearchService, store database.ChunkStore, ai AIService, retrieval types.RetrievalConfig, callTimeout time.Duration) *RAGService {
	if retrieval.TopK <= 0 {
		retrieval.TopK = DefaultTopK
	}
	if retrieval.MinSimilarity <= 0 {
		retrieval.MinSimilarity = DefaultMinSimilarity
	}
	if retrieval.RRFK <= 0 {
		retrieval.RRFK = DefaultRRFK
	}
	if retrieval.ContextWindow <= 0 {
		retrieval.ContextWindow = DefaultContextWindow
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &RAGService{
		search:      search,
		store:       store,
		ai:          ai,
		retrieval:   retrieval,
		callTimeout: callTimeout,
	}
}

// GenerateQueryVariations returns the original query plus up to two LLM
// rephrasings, capped at MaxQueryVariations. Any provider failure degrades
// to the original query alone: multi-query recall is an enhancement, not a
// correctness requirement.
func (s *RAGService) GenerateQueryVariations(ctx context.Context, query string) []string {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	generated, err := s.ai.GenerateVariations(callCtx, query)
	if err != nil {
		log.Printf("query variation generation failed, using original query only: %v", err)
		return []string{query}
	}

	variations := append([]string{query}, generated...)
	if len(variations) > MaxQueryVariations {
		variations = variations[:MaxQueryVariations]
	}
	return variations
}

// fuseKey is the dedup identity for fusion and expansion. The id alone is
// not enough: the same id with a different chunkIndex is a different entry.
func fuseKey(res types.SearchResult) string {
	return fmt.Sprintf("%s-%d", res.ID, res.ChunkIndex)
}

// FuseResults merges ranked result lists with reciprocal rank fusion:
// every appearance of a key at 0-based rank r adds 1/(k+r+1) to its score.
// The payload of a duplicated key comes from its first appearance, in list
// order; the final ordering is a stable descending sort on the fused score.
func FuseResults(resultLists [][]types.SearchResult, k int) []types.RankedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64)
	for _, list := range resultLists {
		for rank, res := range list {
			scores[fuseKey(res)] += 1.0 / float64(k+rank+1)
		}
	}

	seen := make(map[string]bool)
	var fused []types.RankedResult
	for _, list := range resultLists {
		for _, res := range list {
			key := fuseKey(res)
			if seen[key] {
				continue
			}
			seen[key] = true
			fused = append(fused, types.RankedResult{
				SearchResult: res,
				RRFScore:     scores[key],
			})
		}
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].RRFScore > fused[j].RRFScore
	})
	return fused
}

// ExpandContext pulls in the chunks adjacent to each result so the reader
// gets surrounding context. Neighbors carry similarity 0 to mark that they
// were not independently ranked, and are appended after the originals in
// discovery order. Results without a course scope or chunk index pass
// through unexpanded.
func (s *RAGService) ExpandContext(ctx context.Context, userID string, results []types.SearchResult, window int) ([]types.SearchResult, error) {
	if window <= 0 {
		window = s.retrieval.ContextWindow
	}

	seen := make(map[string]bool, len(results))
	for _, res := range results {
		seen[fuseKey(res)] = true
	}

	expanded := append([]types.SearchResult{}, results...)
	for _, res := range results {
		if res.CourseID == "" || res.ChunkIndex < 0 {
			continue
		}
		from := res.ChunkIndex - window
		if from < 0 {
			from = 0
		}
		to := res.ChunkIndex + window

		neighbors, err := s.store.FetchChunkRange(ctx, userID, res.CourseID, res.FileName, from, to)
		if err != nil {
			return nil, err
		}
		for _, neighbor := range neighbors {
			if neighbor.ChunkIndex == res.ChunkIndex {
				continue
			}
			key := fuseKey(neighbor)
			if seen[key] {
				continue
			}
			seen[key] = true
			neighbor.Similarity = 0
			expanded = append(expanded, neighbor)
		}
	}
	return expanded, nil
}

// Retrieve runs the full query pipeline: variations, one similarity search
// per variation (concurrently, so latency stays near one round-trip),
// fusion, context expansion. Store errors propagate; a failed search must
// not masquerade as an empty result set.
func (s *RAGService) Retrieve(ctx context.Context, query, userID, courseID string) ([]types.SearchResult, error) {
	variations := s.GenerateQueryVariations(ctx, query)

	resultLists := make([][]types.SearchResult, len(variations))
	g, searchCtx := errgroup.WithContext(ctx)
	for i, variation := range variations {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(searchCtx, s.callTimeout)
			defer cancel()
			results, err := s.search.SearchByText(callCtx, variation, userID, courseID, s.retrieval.TopK, s.retrieval.MinSimilarity)
			if err != nil {
				return fmt.Errorf("search for variation %d: %w", i, err)
			}
			resultLists[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := FuseResults(resultLists, s.retrieval.RRFK)
	ranked := make([]types.SearchResult, len(fused))
	for i, res := range fused {
		ranked[i] = res.SearchResult
	}

	return s.ExpandContext(ctx, userID, ranked, s.retrieval.ContextWindow)
}

// Ask retrieves relevant chunks and asks the chat model to answer from
// them. The retrieved set is returned alongside the answer so callers can
// show sources.
func (s *RAGService) Ask(ctx context.Context, question, userID, courseID string) (string, []types.SearchResult, error) {
	results, err := s.Retrieve(ctx, question, userID, courseID)
	if err != nil {
		return "", nil, err
	}

	answer, err := s.ai.Chat(ctx, answerInstruction, []types.Message{
		{Role: "user", Content: buildAnswerPrompt(question, results)},
	})
	if err != nil {
		return "", nil, err
	}
	return answer, results, nil
}

// AskStream is Ask with the answer streamed through handler.
func (s *RAGService) AskStream(ctx context.Context, question, userID, courseID string, handler types.StreamHandler) ([]types.SearchResult, error) {
	results, err := s.Retrieve(ctx, question, userID, courseID)
	if err != nil {
		return nil, err
	}

	err = s.ai.ChatStream(ctx, answerInstruction, []types.Message{
		{Role: "user", Content: buildAnswerPrompt(question, results)},
	}, handler)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func buildAnswerPrompt(question string, results []types.SearchResult) string {
	var b strings.Builder
	if len(results) == 0 {
		b.WriteString("No course material matched the question.\n\n")
	} else {
		b.WriteString("Course material excerpts:\n\n")
		for i, res := range results {
			fmt.Fprintf(&b, "[%d] %s (chunk %d)\n%s\n\n", i+1, res.FileName, res.ChunkIndex, res.Content)
		}
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
