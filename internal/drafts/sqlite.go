package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drafts (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS draft_masks (
	draft_id TEXT NOT NULL,
	category TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (draft_id, category)
);`

// SQLiteStore keeps drafts in two tables; each category mask is its own row
// so SetMask is a single upsert.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens or creates the database at dsn.
func NewSQLite(dsn string, log *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps concurrent SetMask calls from tripping SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, log: logger.Named(log, "drafts.sqlite")}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, d Draft) (Draft, error) {
	out, err := s.AddMany(ctx, []Draft{d})
	if err != nil {
		return Draft{}, err
	}
	return out[0], nil
}

func (s *SQLiteStore) AddMany(ctx context.Context, ds []Draft) ([]Draft, error) {
	if err := ValidateBatch(ds); err != nil {
		return nil, err
	}
	ts := now()
	out := make([]Draft, 0, len(ds))
	for _, d := range ds {
		p, err := prepare(d, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range out {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO drafts (id, source, kind, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				d.ID, d.Source, string(d.Kind), d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano()); err != nil {
				return err
			}
			if err := writeMasks(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("add drafts", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func writeMasks(ctx context.Context, tx *sql.Tx, d Draft) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM draft_masks WHERE draft_id = ?", d.ID); err != nil {
		return err
	}
	for c, v := range d.Masks {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO draft_masks (draft_id, category, data) VALUES (?, ?, ?)", d.ID, string(c), v); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Draft, error) {
	var d Draft
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		d, err = readDraft(ctx, tx, id)
		return err
	})
	return d, err
}

func readDraft(ctx context.Context, tx *sql.Tx, id string) (Draft, error) {
	var (
		d                Draft
		kind             string
		created, updated int64
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, source, kind, created_at, updated_at FROM drafts WHERE id = ?", id).
		Scan(&d.ID, &d.Source, &kind, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, err
	}
	d.Kind = Kind(kind)
	d.CreatedAt = time.Unix(0, created).UTC()
	d.UpdatedAt = time.Unix(0, updated).UTC()
	d.Masks = map[Category]string{}

	rows, err := tx.QueryContext(ctx, "SELECT category, data FROM draft_masks WHERE draft_id = ?", id)
	if err != nil {
		return Draft{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c, v string
		if err := rows.Scan(&c, &v); err != nil {
			return Draft{}, err
		}
		d.Masks[Category(c)] = v
	}
	return d, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context) ([]Draft, error) {
	var out []Draft
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id FROM drafts ORDER BY id")
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			d, err := readDraft(ctx, tx, id)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

func (s *SQLiteStore) Update(ctx context.Context, d Draft) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		old, err := readDraft(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		d.CreatedAt = old.CreatedAt
		p, err := prepare(d, now())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE drafts SET source = ?, kind = ?, updated_at = ? WHERE id = ?",
			p.Source, string(p.Kind), p.UpdatedAt.UnixNano(), p.ID); err != nil {
			return err
		}
		return writeMasks(ctx, tx, p)
	})
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM draft_masks WHERE draft_id = ?", id)
		return err
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM draft_masks"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM drafts")
		return err
	})
}

func (s *SQLiteStore) GetMask(ctx context.Context, id string, c Category) (string, bool, error) {
	if err := checkCategory(c); err != nil {
		return "", false, err
	}
	var (
		v     string
		found bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM drafts WHERE id = ?", id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		err := tx.QueryRowContext(ctx,
			"SELECT data FROM draft_masks WHERE draft_id = ? AND category = ?", id, string(c)).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		found = err == nil && v != ""
		return err
	})
	return v, found, err
}

func (s *SQLiteStore) SetMask(ctx context.Context, id string, c Category, encoded string) error {
	if err := checkCategory(c); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE drafts SET updated_at = ? WHERE id = ?", now().UnixNano(), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		if encoded == "" {
			_, err = tx.ExecContext(ctx, "DELETE FROM draft_masks WHERE draft_id = ? AND category = ?", id, string(c))
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO draft_masks (draft_id, category, data) VALUES (?, ?, ?)
			ON CONFLICT(draft_id, category) DO UPDATE SET data = excluded.data`, id, string(c), encoded)
		return err
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
