package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// ChunkRepository serves chunk-level retrieval from Postgres. Full-text
// queries use the built-in english configuration; vector queries need the
// pgvector extension.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) KeywordSearch(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error) {
	args := []any{text}
	where, args := scopeClause(scope, args)
	args = append(args, limit)

	// ts_rank_cd is unbounded above; r/(r+1) maps it into [0,1).
	query := fmt.Sprintf(`
SELECT c.id, c.document_id, c.content, c.container_tags, c.metadata,
	ts_rank_cd(to_tsvector('english', c.content), websearch_to_tsquery('english', $1)) AS rank
FROM document_chunks c
WHERE to_tsvector('english', c.content) @@ websearch_to_tsquery('english', $1)%s
ORDER BY rank DESC
LIMIT $%d
`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []domain.ChunkHit
	for rows.Next() {
		hit, rank, err := scanChunkRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword hit: %w", err)
		}
		hit.Score = rank / (rank + 1)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword hits: %w", err)
	}
	return hits, nil
}

func (r *ChunkRepository) KeywordPattern(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(tokens)+4)
	var likes []string
	for _, token := range tokens {
		args = append(args, "%"+token+"%")
		likes = append(likes, fmt.Sprintf("c.content ILIKE $%d", len(args)))
	}
	where, args := scopeClause(scope, args)
	args = append(args, limit)

	// Hits match at least one token; the score is the fraction matched.
	var cases []string
	for i := range tokens {
		cases = append(cases, fmt.Sprintf("(CASE WHEN c.content ILIKE $%d THEN 1 ELSE 0 END)", i+1))
	}
	query := fmt.Sprintf(`
SELECT c.id, c.document_id, c.content, c.container_tags, c.metadata,
	(%s)::float8 / %d AS rank
FROM document_chunks c
WHERE (%s)%s
ORDER BY rank DESC
LIMIT $%d
`, strings.Join(cases, " + "), len(tokens), strings.Join(likes, " OR "), where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword pattern: %w", err)
	}
	defer rows.Close()

	var hits []domain.ChunkHit
	for rows.Next() {
		hit, rank, err := scanChunkRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern hit: %w", err)
		}
		hit.Score = rank
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pattern hits: %w", err)
	}
	return hits, nil
}

func (r *ChunkRepository) VectorSearch(ctx context.Context, vector []float32, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error) {
	args := []any{pgvector.NewVector(vector)}
	where, args := scopeClause(scope, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT c.id, c.document_id, c.content, c.container_tags, c.metadata,
	1 - (c.embedding <=> $1) AS similarity
FROM document_chunks c
WHERE c.embedding IS NOT NULL%s
ORDER BY c.embedding <=> $1
LIMIT $%d
`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []domain.ChunkHit
	for rows.Next() {
		hit, similarity, err := scanChunkRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hit.Score = similarity
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	return hits, nil
}

func (r *ChunkRepository) FetchCandidates(ctx context.Context, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error) {
	args := []any{}
	where, args := scopeClause(scope, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT c.id, c.document_id, c.content, c.container_tags, c.metadata, c.embedding
FROM document_chunks c
WHERE TRUE%s
ORDER BY c.created_at DESC
LIMIT $%d
`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	var hits []domain.ChunkHit
	for rows.Next() {
		var hit domain.ChunkHit
		var tagsRaw []string
		var metaRaw []byte
		var embedding pgvector.Vector
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Content, (*tagSlice)(&tagsRaw), &metaRaw, &embedding); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		hit.Tags = tagsRaw
		if err := unmarshalMetadata(metaRaw, &hit.Metadata); err != nil {
			return nil, err
		}
		hit.Embedding = embedding.Slice()
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return hits, nil
}

func scanChunkRow(rows *sql.Rows) (domain.ChunkHit, float64, error) {
	var hit domain.ChunkHit
	var tagsRaw []string
	var metaRaw []byte
	var score float64
	if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Content, (*tagSlice)(&tagsRaw), &metaRaw, &score); err != nil {
		return domain.ChunkHit{}, 0, err
	}
	hit.Tags = tagsRaw
	if err := unmarshalMetadata(metaRaw, &hit.Metadata); err != nil {
		return domain.ChunkHit{}, 0, err
	}
	return hit, score, nil
}

func unmarshalMetadata(raw []byte, out *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal chunk metadata: %w", err)
	}
	return nil
}

// tagSlice scans a Postgres text[] literal. The pgx driver returns arrays
// as their text representation through database/sql.
type tagSlice []string

func (s *tagSlice) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		*s = parseTextArray(string(v))
		return nil
	case string:
		*s = parseTextArray(v)
		return nil
	default:
		return fmt.Errorf("unsupported tag array type %T", src)
	}
}

func parseTextArray(raw string) []string {
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, `"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
