package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"field-overlay/internal/overlay/models"

	"github.com/google/uuid"
)

// ============================================================
// SQLite Repository
// ============================================================

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid document")
)

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init applies the schema migration.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Register records a document by reference. The bytes stay wherever url
// points.
func (r *Repository) Register(ctx context.Context, name, url string, pageCount int) (*models.Document, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url required", ErrInvalidInput)
	}
	if pageCount < 0 {
		return nil, fmt.Errorf("%w: negative page count", ErrInvalidInput)
	}
	if name == "" {
		name = filepath.Base(url)
	}

	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO documents (id, name, url, page_count)
        VALUES (?, ?, ?, ?)
    `, id, name, url, pageCount)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, url, page_count, created_at
        FROM documents
        WHERE id = ?
    `, id)

	var d models.Document
	if err := row.Scan(&d.ID, &d.Name, &d.URL, &d.PageCount, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &d, nil
}

// List returns every document, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, url, page_count, created_at
        FROM documents
        ORDER BY created_at, rowid
    `)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.URL, &d.PageCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite opens the sqlite database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
