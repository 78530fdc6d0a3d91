package models

// Document is an ingested document. Read-only for the client.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	MimeType  string    `json:"mime_type"`
	Summary   string    `json:"summary"`
	CreatedAt Timestamp `json:"created_at"`
}

// DisplayTitle returns the title or a placeholder for untitled documents.
func (d Document) DisplayTitle() string {
	if d.Title == "" {
		return "Untitled Document"
	}
	return d.Title
}

// UploadResult summarizes a document upload.
type UploadResult struct {
	DocumentID  string `json:"document_id"`
	ChunkCount  int    `json:"chunk_count"`
	StoragePath string `json:"storage_path"`
	Summary     string `json:"summary"`
}

// SearchResponse is the result of a keyword/vector search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult is a single matching chunk.
type SearchResult struct {
	ChunkIndex    int     `json:"chunk_index"`
	HybridScore   float64 `json:"hybrid_score"`
	Content       string  `json:"content"`
	DocumentTitle *string `json:"document_title,omitempty"`
}

// Title returns the document title or "Document" when the backend omitted it.
func (r SearchResult) Title() string {
	if r.DocumentTitle == nil || *r.DocumentTitle == "" {
		return "Document"
	}
	return *r.DocumentTitle
}
