package types

type SearchRequest struct {
	UserID        string  `json:"user_id"`
	CourseID      string  `json:"course_id,omitempty"`
	Query         string  `json:"query"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

type AskRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
	Question string `json:"question"`
}

type IngestRequest struct {
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id,omitempty"`
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type,omitempty"`
	Text         string `json:"text"`
}

type DeleteDocumentRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
	FileName string `json:"file_name"`
}
