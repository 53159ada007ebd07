package localstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DatabaseFile is the name of the cache database inside the data directory.
const DatabaseFile = "cinemaddict.db"

type sqliteBackend struct {
	db  *sql.DB
	now func() time.Time
}

func openSQLite(ctx context.Context, dataPath string, now func() time.Time) (*sqliteBackend, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite has a single writer; one connection keeps optimistic writes and the
	// sync drain strictly serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteBackend{db: db, now: now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (b *sqliteBackend) getAll(ctx context.Context, ns domain.Namespace) ([]record, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, parent_id, payload FROM records WHERE namespace = ? ORDER BY id`, string(ns))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []record
	for rows.Next() {
		var (
			rec     record
			payload string
		)
		if err := rows.Scan(&rec.ID, &rec.ParentID, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	return out, rows.Err()
}

const upsertRecord = `
    INSERT INTO records (namespace, id, parent_id, payload, updated_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (namespace, id) DO UPDATE SET
        parent_id = excluded.parent_id,
        payload = excluded.payload,
        updated_at = excluded.updated_at
`

func (b *sqliteBackend) put(ctx context.Context, ns domain.Namespace, rec record) error {
	_, err := b.db.ExecContext(ctx, upsertRecord, string(ns), rec.ID, rec.ParentID, string(rec.Payload), b.now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert record %s/%s: %w", ns, rec.ID, err)
	}
	return nil
}

func (b *sqliteBackend) replace(ctx context.Context, ns domain.Namespace, parentID *string, recs []record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if parentID == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM records WHERE namespace = ?`, string(ns))
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM records WHERE namespace = ? AND parent_id = ?`, string(ns), *parentID)
	}
	if err != nil {
		return fmt.Errorf("clear %s: %w", ns, err)
	}

	stamp := b.now().UnixNano()
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, upsertRecord, string(ns), rec.ID, rec.ParentID, string(rec.Payload), stamp); err != nil {
			return fmt.Errorf("insert record %s/%s: %w", ns, rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (b *sqliteBackend) remove(ctx context.Context, ns domain.Namespace, id string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM records WHERE namespace = ? AND id = ?`, string(ns), id); err != nil {
		return fmt.Errorf("delete record %s/%s: %w", ns, id, err)
	}
	return nil
}

func (b *sqliteBackend) enqueue(ctx context.Context, op domain.PendingOperation) (int64, error) {
	res, err := b.db.ExecContext(ctx, `
        INSERT INTO pending_operations (kind, namespace, target_id, parent_id, payload, queued_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, string(op.Kind), string(op.Namespace), op.TargetID, op.ParentID, nullablePayload(op.Payload), op.QueuedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", op, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", op, err)
	}
	return seq, nil
}

func (b *sqliteBackend) pending(ctx context.Context) ([]domain.PendingOperation, error) {
	rows, err := b.db.QueryContext(ctx, `
        SELECT seq, kind, namespace, target_id, parent_id, payload, queued_at
        FROM pending_operations
        ORDER BY seq
    `)
	if err != nil {
		return nil, fmt.Errorf("query pending operations: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingOperation
	for rows.Next() {
		var (
			op        domain.PendingOperation
			kind, ns  string
			payload   sql.NullString
			queuedAtN int64
		)
		if err := rows.Scan(&op.Seq, &kind, &ns, &op.TargetID, &op.ParentID, &payload, &queuedAtN); err != nil {
			return nil, fmt.Errorf("scan pending operation: %w", err)
		}
		op.Kind = domain.OpKind(kind)
		op.Namespace = domain.Namespace(ns)
		if payload.Valid {
			op.Payload = []byte(payload.String)
		}
		op.QueuedAt = time.Unix(0, queuedAtN).UTC()
		out = append(out, op)
	}
	return out, rows.Err()
}

func (b *sqliteBackend) updatePending(ctx context.Context, op domain.PendingOperation) error {
	_, err := b.db.ExecContext(ctx, `
        UPDATE pending_operations
        SET kind = ?, target_id = ?, parent_id = ?, payload = ?
        WHERE seq = ?
    `, string(op.Kind), op.TargetID, op.ParentID, nullablePayload(op.Payload), op.Seq)
	if err != nil {
		return fmt.Errorf("update %s: %w", op, err)
	}
	return nil
}

func (b *sqliteBackend) ack(ctx context.Context, seq int64) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM pending_operations WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("ack #%d: %w", seq, err)
	}
	return nil
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}

func nullablePayload(payload []byte) interface{} {
	if len(payload) == 0 {
		return nil
	}
	return string(payload)
}
