package models

// EmbeddingDimension is the fixed output dimensionality of the embedding
// provider. The vector index is created with this dimension; changing it
// requires re-ingesting the whole knowledge base.
const EmbeddingDimension = 1536

// SourceMetadata describes where a knowledge chunk came from
type SourceMetadata struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	SourceType  string `json:"source_type,omitempty"` // e.g. "faq", "support-page"
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// KnowledgeChunk is a stored unit of retrievable text
type KnowledgeChunk struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Text     string         `json:"text"`
	Metadata SourceMetadata `json:"metadata"`
}

// RetrievalMatch is a single result of a similarity query.
// Score is cosine similarity; results from one query arrive in
// descending score order.
type RetrievalMatch struct {
	ChunkID  string                 `json:"chunk_id"`
	Score    float32                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AssembledContext is the bounded context blob handed to the LLM
type AssembledContext struct {
	Passages   []string `json:"passages"`
	JoinedText string   `json:"joined_text"`
}

// IngestDocument is one raw document submitted for ingestion
type IngestDocument struct {
	ID         string `json:"id,omitempty"` // assigned when absent
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	Content    string `json:"content"`
}

// IngestRequest is the body of POST /ingest
type IngestRequest struct {
	Documents []IngestDocument `json:"documents"`
}

// IngestAccepted is the 202 response for an accepted ingestion job
type IngestAccepted struct {
	JobID         string `json:"jobId"`
	DocumentCount int    `json:"documentCount"`
}

// KnowledgeStats reports the state of the support collection
type KnowledgeStats struct {
	Collection string `json:"collection"`
	ChunkCount int    `json:"chunkCount"`
}
