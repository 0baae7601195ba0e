package types

// Chunk is a token-bounded span of a source document, produced by the
// chunker before embedding and persistence.
type Chunk struct {
	Text       string        `json:"text"`
	Index      int           `json:"index"`
	TokenCount int           `json:"token_count"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// ChunkMetadata carries character offsets into the original document text.
// Offsets are best-effort locators: once overlap text is prepended to a
// chunk they no longer map to a single contiguous span.
type ChunkMetadata struct {
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

// StoredChunk is a chunk as it goes into the vector store, scoped to its
// owning user and document.
type StoredChunk struct {
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	FileName     string `json:"file_name"`
	Chunk
}

// DocumentRef identifies a document by its composite key. There is no
// stored document entity; a document is the set of chunks sharing the same
// (user_id, course_id, file_name).
type DocumentRef struct {
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id,omitempty"`
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
}

// SearchResult is a single retrieval hit. Similarity is cosine similarity
// in [-1, 1]; a value of 0 marks a chunk that was pulled in for context
// continuity rather than ranked independently.
type SearchResult struct {
	ID           string        `json:"id"`
	CourseID     string        `json:"course_id,omitempty"`
	DocumentType string        `json:"document_type,omitempty"`
	FileName     string        `json:"file_name"`
	ChunkIndex   int           `json:"chunk_index"`
	Content      string        `json:"content"`
	Metadata     ChunkMetadata `json:"metadata"`
	Similarity   float64       `json:"similarity"`
}

// RankedResult is a SearchResult after reciprocal rank fusion. RRFScore is
// monotonically comparable across one fusion pass, not a probability.
type RankedResult struct {
	SearchResult
	RRFScore float64 `json:"rrf_score"`
}

// ChunkerConfig holds the chunking budgets.
type ChunkerConfig struct {
	MaxTokens     int `mapstructure:"max_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens"`
}

// RetrievalConfig holds the query-time defaults.
type RetrievalConfig struct {
	TopK          int     `mapstructure:"top_k"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
	RRFK          int     `mapstructure:"rrf_k"`
	ContextWindow int     `mapstructure:"context_window"`
}
