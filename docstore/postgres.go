package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"goflare.io/storefront/driver"
)

var _ Gateway = (*PostgresGateway)(nil)

const uniqueViolation = "23505"

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

const createDocumentsDataIndex = `
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops)`

// PostgresGateway stores every collection in a single JSONB table.
type PostgresGateway struct {
	conn   driver.PostgresPool
	tm     *driver.TransactionManager
	logger *zap.Logger
}

func NewPostgresGateway(conn driver.PostgresPool, tm *driver.TransactionManager, logger *zap.Logger) *PostgresGateway {
	return &PostgresGateway{
		conn:   conn,
		tm:     tm,
		logger: logger,
	}
}

// EnsureSchema creates the documents table and its index.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	return g.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createDocumentsTable); err != nil {
			return fmt.Errorf("failed to create documents table: %w", err)
		}
		if _, err := tx.Exec(ctx, createDocumentsDataIndex); err != nil {
			return fmt.Errorf("failed to create documents index: %w", err)
		}
		return nil
	})
}

func (g *PostgresGateway) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(doc.Data)
	if err != nil {
		return "", invalidDocument(err)
	}

	if _, err = g.conn.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(data),
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", alreadyExists(collection, id)
		}
		g.logger.Error("Failed to create document", zap.String("collection", collection), zap.Error(err))
		return "", writeError("create", collection, err)
	}

	return id, nil
}

func (g *PostgresGateway) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := g.conn.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, notFound(collection, id)
		}
		return Document{}, queryError("get", collection, err)
	}

	data, err := decodeData(raw)
	if err != nil {
		return Document{}, queryError("get", collection, err)
	}
	return Document{ID: id, Data: data}, nil
}

func (g *PostgresGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return invalidDocument(err)
	}

	tag, err := g.conn.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, string(patch),
	)
	if err != nil {
		g.logger.Error("Failed to update document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return writeError("update", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (g *PostgresGateway) Delete(ctx context.Context, collection, id string) error {
	tag, err := g.conn.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		g.logger.Error("Failed to delete document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return writeError("delete", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (g *PostgresGateway) Query(ctx context.Context, q Query) (Page, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return Page{}, err
	}

	rows, err := g.conn.Query(ctx, sql, args...)
	if err != nil {
		g.logger.Error("Failed to query documents", zap.String("collection", q.Collection), zap.Error(err))
		return Page{}, queryError("query", q.Collection, err)
	}
	defer rows.Close()

	page := Page{Docs: make([]Document, 0)}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err = rows.Scan(&id, &raw); err != nil {
			return Page{}, queryError("query", q.Collection, err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return Page{}, queryError("query", q.Collection, err)
		}
		page.Docs = append(page.Docs, Document{ID: id, Data: data})
	}
	if err = rows.Err(); err != nil {
		return Page{}, queryError("query", q.Collection, err)
	}

	if n := len(page.Docs); n > 0 {
		last := page.Docs[n-1]
		var v any
		if q.OrderBy != "" {
			v = last.Data[q.OrderBy]
		}
		page.LastCursor = NewCursor(v, last.ID)
	}
	return page, nil
}

// buildQuery renders q as SQL. Field names are bound as parameters of the ->
// operator, values as JSONB literals, so nothing user supplied is spliced in.
func buildQuery(q Query) (string, []any, error) {
	var (
		sb   strings.Builder
		args = []any{q.Collection}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, invalidDocument(err)
		}
		fmt.Fprintf(&sb, ` AND data -> %s::text = %s::jsonb`, arg(f.Field), arg(string(value)))
	}

	op, dir := ">", "ASC"
	if q.Direction == Desc {
		op, dir = "<", "DESC"
	}

	if !q.After.IsZero() {
		value, id, err := q.After.Decode()
		if err != nil {
			return "", nil, err
		}
		if q.OrderBy != "" {
			raw, err := json.Marshal(value)
			if err != nil {
				return "", nil, invalidDocument(err)
			}
			fmt.Fprintf(&sb, ` AND (data -> %s::text, id) %s (%s::jsonb, %s)`, arg(q.OrderBy), op, arg(string(raw)), arg(id))
		} else {
			fmt.Fprintf(&sb, ` AND id %s %s`, op, arg(id))
		}
	}

	if q.OrderBy != "" {
		fmt.Fprintf(&sb, ` ORDER BY data -> %s::text %s, id %s`, arg(q.OrderBy), dir, dir)
	} else {
		fmt.Fprintf(&sb, ` ORDER BY id %s`, dir)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, ` LIMIT %s`, arg(q.Limit))
	}

	return sb.String(), args, nil
}

func decodeData(raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return data, nil
}
