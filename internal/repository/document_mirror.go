package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"tg_miniapp/internal/entities"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DocumentMirror copies saved documents into Postgres so other services can
// read them without access to the web root.
type DocumentMirror struct {
	db DBTX
}

func NewDocumentMirror(db DBTX) *DocumentMirror {
	return &DocumentMirror{db: db}
}

// Upsert stores body as the latest document of kind for client ("" for the root).
func (m *DocumentMirror) Upsert(ctx context.Context, kind entities.DocumentKind, client string, body []byte) error {
	_, err := m.db.Exec(ctx, `
		INSERT INTO miniapp_documents (client, kind, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (client, kind) DO UPDATE SET body=EXCLUDED.body, updated_at=NOW()
	`, client, string(kind), string(body))
	if err != nil {
		return fmt.Errorf("upsert %s document: %w", kind, err)
	}
	return nil
}
