package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/storage"
)

type IndexStore struct {
	db *sql.DB
}

// New opens (creating if needed) the index database at path.
func New(path string) (*IndexStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the per-connection pragmas in effect and
	// serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &IndexStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL,
		lines INTEGER NOT NULL,
		hash TEXT NOT NULL,
		lang TEXT NOT NULL,
		mtime INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`)
	return err
}

func (s *IndexStore) Close() error { return s.db.Close() }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

const upsertFileSQL = `INSERT INTO files(path,size,lines,hash,lang,mtime,created_at)
	VALUES(?,?,?,?,?,?,?)
	ON CONFLICT(path) DO UPDATE SET
	size=excluded.size,
	lines=excluded.lines,
	hash=excluded.hash,
	lang=excluded.lang,
	mtime=excluded.mtime
	RETURNING id`

func upsertFile(ctx context.Context, q execer, rec models.FileRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt == 0 {
		createdAt = rec.MTime
	}
	var id int64
	err := q.QueryRowContext(ctx, upsertFileSQL,
		rec.Path, rec.Size, rec.Lines, rec.Hash, rec.Lang, rec.MTime, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", rec.Path, err)
	}
	return id, nil
}

func replaceSymbols(ctx context.Context, q execer, fileID int64, symbols []models.SymbolRecord) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := q.PrepareContext(ctx, `INSERT INTO symbols(file_id,name,kind,line,col) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, fileID, sym.Name, string(sym.Kind), sym.Line, sym.Col); err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
		}
	}
	return nil
}

func (s *IndexStore) UpsertFile(ctx context.Context, rec models.FileRecord) (int64, error) {
	return upsertFile(ctx, s.db, rec)
}

func (s *IndexStore) ReplaceSymbols(ctx context.Context, fileID int64, symbols []models.SymbolRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := replaceSymbols(ctx, tx, fileID, symbols); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *IndexStore) SaveFile(
	ctx context.Context,
	rec models.FileRecord,
	symbols []models.SymbolRecord,
	replace bool,
) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	id, err := upsertFile(ctx, tx, rec)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if replace {
		if err := replaceSymbols(ctx, tx, id, symbols); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const fileColumns = `id,path,size,lines,hash,lang,mtime,created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (models.FileRecord, error) {
	var f models.FileRecord
	err := row.Scan(&f.ID, &f.Path, &f.Size, &f.Lines, &f.Hash, &f.Lang, &f.MTime, &f.CreatedAt)
	return f, err
}

func (s *IndexStore) GetFile(ctx context.Context, path string) (*models.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s: %w", path, storage.ErrNotFound)
		}
		return nil, err
	}
	return &f, nil
}

func (s *IndexStore) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *IndexStore) ListSymbols(ctx context.Context, filter models.SymbolFilter) ([]models.SymbolHit, error) {
	var (
		where []string
		args  []any
	)
	if filter.FilePath != "" {
		where = append(where, "f.path = ?")
		args = append(args, filter.FilePath)
	}
	if filter.Name != "" {
		// instr avoids LIKE wildcard escaping.
		where = append(where, "instr(lower(s.name), lower(?)) > 0")
		args = append(args, filter.Name)
	}
	if filter.Kind != "" {
		where = append(where, "s.kind = ?")
		args = append(args, string(filter.Kind))
	}
	query := `SELECT s.name, s.kind, s.line, s.col, f.path, f.id
		FROM symbols s JOIN files f ON f.id = s.file_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.path, s.line, s.col"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.SymbolHit
	for rows.Next() {
		var (
			h    models.SymbolHit
			kind string
		)
		if err := rows.Scan(&h.Symbol.Name, &kind, &h.Symbol.Line, &h.Symbol.Col, &h.File, &h.FileID); err != nil {
			return nil, err
		}
		h.Symbol.Kind = models.SymbolKind(kind)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *IndexStore) FilesDeclaring(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT f.path
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE lower(s.name) = lower(?)
		ORDER BY f.path`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *IndexStore) PruneMissing(ctx context.Context, observed map[string]struct{}) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT id, path FROM files`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	var stale []int64
	for rows.Next() {
		var (
			id int64
			p  string
		)
		if err := rows.Scan(&id, &p); err != nil {
			_ = rows.Close()
			_ = tx.Rollback()
			return 0, err
		}
		if _, ok := observed[p]; !ok {
			stale = append(stale, id)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM files WHERE id = ?`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer func() { _ = stmt.Close() }()
	for _, id := range stale {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("prune file %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *IndexStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

func (s *IndexStore) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, storage.ErrNotFound)
	}
	return v, err
}

func (s *IndexStore) Status(ctx context.Context) (models.IndexStatus, error) {
	var st models.IndexStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM files), (SELECT COUNT(*) FROM symbols)`,
	).Scan(&st.Files, &st.Symbols)
	if err != nil {
		return st, err
	}
	if v, err := s.GetMeta(ctx, storage.MetaLastRun); err == nil {
		if ms, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			t := time.UnixMilli(ms)
			st.LastRun = &t
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return st, err
	}
	if v, err := s.GetMeta(ctx, storage.MetaRoot); err == nil {
		st.Root = v
	}
	return st, nil
}

var _ storage.IndexStore = (*IndexStore)(nil)
