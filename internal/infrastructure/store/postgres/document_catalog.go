package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// DocumentCatalog reads document-level metadata for hydration and the
// broad recency fallback.
type DocumentCatalog struct {
	db *sql.DB
}

func NewDocumentCatalog(db *sql.DB) *DocumentCatalog {
	return &DocumentCatalog{db: db}
}

func (c *DocumentCatalog) GetDocuments(ctx context.Context, ids []string) (map[string]domain.DocumentInfo, error) {
	if len(ids) == 0 {
		return map[string]domain.DocumentInfo{}, nil
	}

	rows, err := c.db.QueryContext(ctx, `
SELECT id, title, doc_type, summary, content, container_tags, created_at, updated_at
FROM documents
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.DocumentInfo, len(ids))
	for rows.Next() {
		info, err := scanDocumentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[info.ID] = info
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (c *DocumentCatalog) GetByID(ctx context.Context, id string) (domain.DocumentInfo, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT id, title, doc_type, summary, content, container_tags, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	info, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DocumentInfo{}, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return domain.DocumentInfo{}, fmt.Errorf("scan document: %w", err)
	}
	return info, nil
}

func (c *DocumentCatalog) ListRecent(ctx context.Context, tags []string, limit int) ([]domain.DocumentInfo, error) {
	args := []any{}
	where := ""
	if len(tags) > 0 {
		args = append(args, tags)
		where = fmt.Sprintf(" WHERE container_tags && $%d", len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, title, doc_type, summary, content, container_tags, created_at, updated_at
FROM documents%s
ORDER BY created_at DESC
LIMIT $%d
`, where, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentInfo
	for rows.Next() {
		info, err := scanDocumentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recent document: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumentRow(row rowScanner) (domain.DocumentInfo, error) {
	var info domain.DocumentInfo
	var tagsRaw []string
	err := row.Scan(
		&info.ID, &info.Title, &info.Type, &info.Summary, &info.Content,
		(*tagSlice)(&tagsRaw), &info.CreatedAt, &info.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentInfo{}, err
	}
	info.Tags = tagsRaw
	return info, nil
}
