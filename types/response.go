package types

type DataResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type AskResponse struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}

type IngestResponse struct {
	FileName   string `json:"file_name"`
	ChunkCount int    `json:"chunk_count"`
}

type ListDocumentsResponse struct {
	Documents []DocumentRef `json:"documents"`
}
