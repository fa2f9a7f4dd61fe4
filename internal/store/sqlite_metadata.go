package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteMetadataStore implements MetadataStore (spec §6) over SQLite: it
// persists Chunk/ChunkMetadata records and the (app, source_path, seq_idx)
// -> cid side-index that spec §9's Open Question prescribes in place of
// the brittle "page the first 1000 results then filter" /neighbors design.
type SQLiteMetadataStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// DriverSQLite3 selects the cgo-backed github.com/mattn/go-sqlite3 driver
// (registered as "sqlite3"). DriverModernC selects the pure-Go
// modernc.org/sqlite driver (registered as "sqlite"), for CGO_ENABLED=0
// cross-compiled deployments where linking sqlite3's C code isn't an
// option. Any other value (including "") falls back to DriverSQLite3.
const (
	DriverSQLite3 = "sqlite3"
	DriverModernC = "modernc"
)

// NewSQLiteMetadataStore opens (creating if needed) a metadata store at
// path using driver ("sqlite3" or "modernc"; see the Driver constants). An
// empty path opens an in-memory database, useful for tests.
func NewSQLiteMetadataStore(path, driver string) (*SQLiteMetadataStore, error) {
	useModernC := driver == DriverModernC

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	}

	var (
		db  *sql.DB
		err error
	)
	if useModernC {
		dsn := ":memory:"
		if path != "" {
			dsn = path
		}
		db, err = sql.Open("sqlite", dsn)
	} else {
		dsn := ":memory:"
		if path != "" {
			dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sql.Open("sqlite3", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if path != "" {
		db.SetMaxOpenConns(1) // WAL with a single writer connection, per spec §5 single-writer-per-index
	}

	// modernc.org/sqlite may ignore DSN query params for pragmas, so set
	// them via explicit statements instead.
	if useModernC && path != "" {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
			}
		}
	}

	s := &SQLiteMetadataStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteMetadataStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	cid TEXT PRIMARY KEY,
	app TEXT NOT NULL,
	source_path TEXT NOT NULL,
	section_title TEXT NOT NULL DEFAULT '',
	seq_idx INTEGER NOT NULL,
	body TEXT NOT NULL,
	preview TEXT NOT NULL,
	hash TEXT NOT NULL,
	simhash INTEGER NOT NULL,
	ingested_at TEXT NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_chunks_neighbors ON chunks(app, source_path, seq_idx);
CREATE TABLE IF NOT EXISTS kv_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// Put implements MetadataStore.
func (s *SQLiteMetadataStore) Put(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (cid, app, source_path, section_title, seq_idx, body, preview, hash, simhash, ingested_at, extra)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cid) DO UPDATE SET
	app=excluded.app, source_path=excluded.source_path, section_title=excluded.section_title,
	seq_idx=excluded.seq_idx, body=excluded.body, preview=excluded.preview, hash=excluded.hash,
	simhash=excluded.simhash, ingested_at=excluded.ingested_at, extra=excluded.extra
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		extra, err := json.Marshal(c.Metadata.Extra)
		if err != nil {
			return fmt.Errorf("marshal extra metadata for %s: %w", c.CID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.CID, c.Metadata.App, c.Metadata.SourcePath, c.Metadata.SectionTitle,
			c.Metadata.SeqIdx, c.Body, c.Preview, c.Hash, int64(c.SimHash), c.Metadata.IngestedAt.Format(timeLayout), string(extra)); err != nil {
			return fmt.Errorf("put chunk %s: %w", c.CID, err)
		}
	}
	return tx.Commit()
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

func scanChunk(row interface{ Scan(...any) error }) (*Chunk, error) {
	var (
		c           Chunk
		m           ChunkMetadata
		ingestedRaw string
		extraRaw    string
		simhash     int64
	)
	if err := row.Scan(&c.CID, &m.App, &m.SourcePath, &m.SectionTitle, &m.SeqIdx, &c.Body, &c.Preview, &c.Hash, &simhash, &ingestedRaw, &extraRaw); err != nil {
		return nil, err
	}
	m.Hash = c.Hash
	m.SimHash = uint64(simhash)
	c.SimHash = uint64(simhash)
	if t, err := parseTime(ingestedRaw); err == nil {
		m.IngestedAt = t
	}
	_ = json.Unmarshal([]byte(extraRaw), &m.Extra)
	c.Metadata = m
	return &c, nil
}

// Get implements MetadataStore.
func (s *SQLiteMetadataStore) Get(ctx context.Context, cid string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT cid, app, source_path, section_title, seq_idx, body, preview, hash, simhash, ingested_at, extra FROM chunks WHERE cid = ?`, cid)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetBatch implements MetadataStore.
func (s *SQLiteMetadataStore) GetBatch(ctx context.Context, cids []string) (map[string]*Chunk, error) {
	out := make(map[string]*Chunk)
	if len(cids) == 0 {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(cids))
	args := make([]any, len(cids))
	for i, id := range cids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT cid, app, source_path, section_title, seq_idx, body, preview, hash, simhash, ingested_at, extra FROM chunks WHERE cid IN (%s)`, join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.CID] = c
	}
	return out, rows.Err()
}

// Neighbors implements MetadataStore, replacing the brittle
// paginate-then-filter /neighbors design (spec §9) with a direct indexed
// range query against the (app, source_path, seq_idx) side-index.
func (s *SQLiteMetadataStore) Neighbors(ctx context.Context, app, sourcePath string, center, radius, limit int) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
SELECT cid, app, source_path, section_title, seq_idx, body, preview, hash, simhash, ingested_at, extra
FROM chunks
WHERE app = ? AND source_path = ? AND seq_idx BETWEEN ? AND ?
ORDER BY seq_idx ASC
LIMIT ?`, app, sourcePath, center-radius, center+radius, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetState implements MetadataStore.
func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_state(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// GetState implements MetadataStore.
func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close implements MetadataStore.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}
