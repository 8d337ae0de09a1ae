// Package semantic maintains an embedding index over domain records and
// answers nearest-neighbour queries. It backs the resolver's fallback
// when lexical search finds nothing.
package semantic

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/donna-ai/donna/internal/resolve"
	"github.com/donna-ai/donna/internal/store"
)

// ContextIndex stores one embedding per (entity type, entity id) in the
// embeddings table and ranks hits by cosine similarity in memory. Fine
// for a single user's directory; swap in a vector store when the corpus
// outgrows it.
type ContextIndex struct {
	store    *store.Store
	embedder embeddings.Embedder
}

func NewContextIndex(s *store.Store, embedder embeddings.Embedder) *ContextIndex {
	return &ContextIndex{store: s, embedder: embedder}
}

// Index embeds content and upserts it under the record's identity. The
// record itself is stored as JSON so hits can carry it back.
func (ci *ContextIndex) Index(ctx context.Context, userID string, entityType store.EntityType, entityID, label, content string) error {
	vec, err := ci.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return fmt.Errorf("embed %s/%s: %w", entityType, entityID, err)
	}
	q := `INSERT INTO embeddings (user_id, entity_type, entity_id, label, content, vector) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET label = excluded.label, content = excluded.content, vector = excluded.vector`
	_, err = ci.store.DB.ExecContext(ctx, q, userID, string(entityType), entityID, label, content, encodeVector(vec))
	return err
}

// Remove drops a record's embedding.
func (ci *ContextIndex) Remove(ctx context.Context, entityType store.EntityType, entityID string) error {
	_, err := ci.store.DB.ExecContext(ctx,
		`DELETE FROM embeddings WHERE entity_type = ? AND entity_id = ?`, string(entityType), entityID)
	return err
}

// SearchContext embeds the query and returns stored records above the
// similarity floor, best first.
func (ci *ContextIndex) SearchContext(ctx context.Context, userID, query string, opts resolve.SemanticOptions) ([]resolve.SemanticHit, error) {
	qvec, err := ci.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sqlQuery := `SELECT entity_type, entity_id, label, content, vector FROM embeddings WHERE user_id = ?`
	args := []any{userID}
	if len(opts.EntityTypes) == 1 {
		sqlQuery += ` AND entity_type = ?`
		args = append(args, string(opts.EntityTypes[0]))
	}

	rows, err := ci.store.DB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[store.EntityType]bool, len(opts.EntityTypes))
	for _, t := range opts.EntityTypes {
		wanted[t] = true
	}

	var hits []resolve.SemanticHit
	for rows.Next() {
		var entityType, entityID, label, content string
		var blob []byte
		if err := rows.Scan(&entityType, &entityID, &label, &content, &blob); err != nil {
			return nil, err
		}
		et := store.EntityType(entityType)
		if len(wanted) > 0 && !wanted[et] {
			continue
		}
		score := cosineSimilarity(qvec, decodeVector(blob))
		if score < opts.MinSimilarity {
			continue
		}
		var record any
		if err := json.Unmarshal([]byte(content), &record); err != nil {
			record = content
		}
		hits = append(hits, resolve.SemanticHit{
			Type: et, ID: entityID, Label: label, Record: record, Score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// encodeVector packs float32s little endian.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
