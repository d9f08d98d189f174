package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Lewis121025/Generate-Agent/creative"
	"github.com/Lewis121025/Generate-Agent/general"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	created_at TEXT NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_tenant ON projects(tenant_id);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	created_at TEXT NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_tenant ON sessions(tenant_id);
`

// Open opens the SQLite database at path with foreign keys on and bootstraps
// the schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: bootstrap schema: %w", err)
	}
	return db, nil
}

// SQLiteProjects stores each project as a JSON document row.
type SQLiteProjects struct {
	db *sql.DB
}

// NewSQLiteProjects wraps an opened database.
func NewSQLiteProjects(db *sql.DB) *SQLiteProjects {
	return &SQLiteProjects{db: db}
}

// Create implements creative.Repository.
func (s *SQLiteProjects) Create(ctx context.Context, p *creative.Project) (*creative.Project, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("store: encode project: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, tenant_id, created_at, doc) VALUES (?, ?, ?, ?)`,
		p.ID, p.TenantID, p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"), string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: insert project: %w", err)
	}
	return p.Clone(), nil
}

// Get implements creative.Repository.
func (s *SQLiteProjects) Get(ctx context.Context, id string) (*creative.Project, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM projects WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query project: %w", err)
	}
	var p creative.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("store: decode project: %w", err)
	}
	return &p, nil
}

// Upsert implements creative.Repository.
func (s *SQLiteProjects) Upsert(ctx context.Context, p *creative.Project) (*creative.Project, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("store: encode project: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, tenant_id, created_at, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tenant_id = excluded.tenant_id, doc = excluded.doc`,
		p.ID, p.TenantID, p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"), string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: upsert project: %w", err)
	}
	return p.Clone(), nil
}

// ListForTenant implements creative.Repository.
func (s *SQLiteProjects) ListForTenant(ctx context.Context, tenantID string) ([]*creative.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM projects WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []*creative.Project
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		var p creative.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("store: decode project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

var _ creative.Repository = (*SQLiteProjects)(nil)

// SQLiteSessions stores each session as a JSON document row.
type SQLiteSessions struct {
	db *sql.DB
}

// NewSQLiteSessions wraps an opened database.
func NewSQLiteSessions(db *sql.DB) *SQLiteSessions {
	return &SQLiteSessions{db: db}
}

// Create implements general.Repository.
func (s *SQLiteSessions) Create(ctx context.Context, sess *general.Session) (*general.Session, error) {
	doc, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("store: encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, created_at, doc) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.TenantID, sess.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"), string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: insert session: %w", err)
	}
	return sess.Clone(), nil
}

// Get implements general.Repository.
func (s *SQLiteSessions) Get(ctx context.Context, id string) (*general.Session, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query session: %w", err)
	}
	var sess general.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, fmt.Errorf("store: decode session: %w", err)
	}
	return &sess, nil
}

// Upsert implements general.Repository.
func (s *SQLiteSessions) Upsert(ctx context.Context, sess *general.Session) (*general.Session, error) {
	doc, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("store: encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, created_at, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tenant_id = excluded.tenant_id, doc = excluded.doc`,
		sess.ID, sess.TenantID, sess.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"), string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: upsert session: %w", err)
	}
	return sess.Clone(), nil
}

// ListForTenant implements general.Repository.
func (s *SQLiteSessions) ListForTenant(ctx context.Context, tenantID string) ([]*general.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM sessions WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*general.Session
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		var sess general.Session
		if err := json.Unmarshal([]byte(doc), &sess); err != nil {
			return nil, fmt.Errorf("store: decode session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

var _ general.Repository = (*SQLiteSessions)(nil)
