package repositories

import (
	"context"

	"aven-support/internal/db"
	"aven-support/internal/models"
)

// ChromaVectorRepository implements VectorRepository on ChromaDB
type ChromaVectorRepository struct {
	client     *db.ChromaDBClient
	collection string
}

// NewChromaVectorRepository creates a ChromaDB-backed vector repository
// scoped to the given collection
func NewChromaVectorRepository(client *db.ChromaDBClient, collection string) VectorRepository {
	return &ChromaVectorRepository{
		client:     client,
		collection: collection,
	}
}

// EnsureCollection creates the support collection when absent
func (r *ChromaVectorRepository) EnsureCollection(ctx context.Context) error {
	if _, err := r.client.GetOrCreateCollection(ctx, r.collection); err != nil {
		return NewStoreError("ensure_collection", err, "")
	}
	return nil
}

// Upsert stores chunks in batches of UpsertBatchSize, replacing prior
// entries by id
func (r *ChromaVectorRepository) Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	for start := 0; start < len(chunks); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		ids := make([]string, len(batch))
		documents := make([]string, len(batch))
		embeddings := make([][]float32, len(batch))
		metadatas := make([]map[string]interface{}, len(batch))

		for i, chunk := range batch {
			ids[i] = chunk.ID
			documents[i] = chunk.Text
			embeddings[i] = chunk.Vector
			metadatas[i] = map[string]interface{}{
				"title":        chunk.Metadata.Title,
				"url":          chunk.Metadata.URL,
				"source_type":  chunk.Metadata.SourceType,
				"chunk_index":  chunk.Metadata.ChunkIndex,
				"total_chunks": chunk.Metadata.TotalChunks,
			}
		}

		if err := r.client.UpsertDocuments(ctx, r.collection, ids, documents, embeddings, metadatas); err != nil {
			return NewStoreError("upsert", err, "")
		}
	}
	return nil
}

// Query runs a nearest-neighbor search and converts the store's cosine
// distances to similarity scores (score = 1 - distance), preserving the
// store's descending-score order.
func (r *ChromaVectorRepository) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*models.RetrievalMatch, error) {
	if topK <= 0 {
		return []*models.RetrievalMatch{}, nil
	}

	resp, err := r.client.Query(ctx, r.collection, vector, topK, includeMetadata)
	if err != nil {
		return nil, NewStoreError("query", err, "")
	}

	// Single query vector in, single result row out
	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return []*models.RetrievalMatch{}, nil
	}

	ids := resp.IDs[0]
	matches := make([]*models.RetrievalMatch, 0, len(ids))
	for i, id := range ids {
		match := &models.RetrievalMatch{ChunkID: id}

		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			match.Score = 1 - resp.Distances[0][i]
		}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			match.Text = resp.Documents[0][i]
		}
		if includeMetadata && len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			match.Metadata = resp.Metadatas[0][i]
		}

		matches = append(matches, match)
	}

	return matches, nil
}

// Stats reports the collection's stored chunk count
func (r *ChromaVectorRepository) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	count, err := r.client.CountCollection(ctx, r.collection)
	if err != nil {
		return nil, NewStoreError("stats", err, "")
	}
	return &models.KnowledgeStats{
		Collection: r.collection,
		ChunkCount: count,
	}, nil
}

// Ping checks that the store is reachable
func (r *ChromaVectorRepository) Ping(ctx context.Context) error {
	if err := r.client.Heartbeat(ctx); err != nil {
		return NewStoreError("ping", err, "")
	}
	return nil
}

// Close releases client connections
func (r *ChromaVectorRepository) Close() error {
	r.client.Close()
	return nil
}
