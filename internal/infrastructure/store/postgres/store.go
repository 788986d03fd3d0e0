package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the document and chunk tables. The pgvector extension
// must already be installed; the embedding dimension is fixed at creation.
func EnsureSchema(ctx context.Context, db *sql.DB, embeddingDim int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	container_tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	container_tags TEXT[] NOT NULL DEFAULT '{}',
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%d),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_tags ON documents USING GIN(container_tags);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tags ON document_chunks USING GIN(container_tags);
CREATE INDEX IF NOT EXISTS idx_chunks_content_fts ON document_chunks USING GIN(to_tsvector('english', content));
`, embeddingDim)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// scopeClause renders the scope constraints as SQL predicates on the chunk
// table alias, appending bind arguments in place.
func scopeClause(scope domain.SearchScope, args []any) (string, []any) {
	var predicates []string
	if len(scope.ContainerTags) > 0 {
		args = append(args, scope.ContainerTags)
		predicates = append(predicates, fmt.Sprintf("c.container_tags && $%d", len(args)))
	}
	if len(scope.DocumentIDs) > 0 {
		args = append(args, scope.DocumentIDs)
		predicates = append(predicates, fmt.Sprintf("c.document_id = ANY($%d)", len(args)))
	}
	if scope.DocumentID != "" {
		args = append(args, scope.DocumentID)
		predicates = append(predicates, fmt.Sprintf("c.document_id = $%d", len(args)))
	}
	if len(predicates) == 0 {
		return "", args
	}
	return " AND " + strings.Join(predicates, " AND "), args
}
