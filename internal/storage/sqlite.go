package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/jotdown/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// One connection: SQLite has a single writer, and :memory: databases are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and applies migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// Thought operations

const thoughtColumns = `
	t.id, t.content, t.category_id, t.vector, t.provider, t.model,
	t.created_at, t.updated_at, t.deleted_at,
	c.id, c.name, c.description, c.is_active, c.created_at, c.updated_at`

const thoughtFrom = `
	FROM thoughts t
	INNER JOIN categories c ON c.id = t.category_id`

func scanThought(row scanner) (*types.Thought, error) {
	var thought types.Thought
	var category types.Category
	var blob []byte
	var deletedAt sql.NullTime

	err := row.Scan(
		&thought.ID, &thought.Content, &thought.CategoryID, &blob,
		&thought.Provider, &thought.Model,
		&thought.CreatedAt, &thought.UpdatedAt, &deletedAt,
		&category.ID, &category.Name, &category.Description, &category.IsActive,
		&category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	thought.Vector, err = deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("thought %s: %w", thought.ID, err)
	}
	if deletedAt.Valid {
		deleted := deletedAt.Time
		thought.DeletedAt = &deleted
	}
	thought.Category = &category
	return &thought, nil
}

// createThoughtWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createThoughtWithQuerier(ctx context.Context, q querier, thought *types.Thought) error {
	if err := thought.Validate(); err != nil {
		return err
	}
	if thought.ID == "" {
		thought.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if thought.CreatedAt.IsZero() {
		thought.CreatedAt = now
	}
	thought.CreatedAt = thought.CreatedAt.UTC()
	thought.UpdatedAt = now

	query := `
		INSERT INTO thoughts (id, content, category_id, vector, dimension, provider, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		thought.ID, thought.Content, thought.CategoryID,
		serializeVector(thought.Vector), len(thought.Vector),
		thought.Provider, thought.Model,
		thought.CreatedAt, thought.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thought: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateThought(ctx context.Context, thought *types.Thought) error {
	return s.createThoughtWithQuerier(ctx, s.querier(), thought)
}

// getThoughtWithQuerier returns a live thought; soft-deleted thoughts are reported as ErrNotFound
func (s *SQLiteStorage) getThoughtWithQuerier(ctx context.Context, q querier, id string) (*types.Thought, error) {
	query := "SELECT " + thoughtColumns + thoughtFrom + " WHERE t.id = ? AND t.deleted_at IS NULL"
	thought, err := scanThought(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return thought, nil
}

func (s *SQLiteStorage) GetThought(ctx context.Context, id string) (*types.Thought, error) {
	return s.getThoughtWithQuerier(ctx, s.querier(), id)
}

// updateThoughtWithQuerier rewrites content, category and embedding of a live thought
func (s *SQLiteStorage) updateThoughtWithQuerier(ctx context.Context, q querier, thought *types.Thought) error {
	if err := thought.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE thoughts
		SET content = ?, category_id = ?, vector = ?, dimension = ?,
		    provider = ?, model = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		thought.Content, thought.CategoryID,
		serializeVector(thought.Vector), len(thought.Vector),
		thought.Provider, thought.Model, now, thought.ID)
	if err != nil {
		return fmt.Errorf("failed to update thought: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	thought.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateThought(ctx context.Context, thought *types.Thought) error {
	return s.updateThoughtWithQuerier(ctx, s.querier(), thought)
}

// updateThoughtVectorWithQuerier replaces only the embedding; updated_at is left alone
func (s *SQLiteStorage) updateThoughtVectorWithQuerier(ctx context.Context, q querier, id string, vector []float32, provider, model string) error {
	query := `
		UPDATE thoughts
		SET vector = ?, dimension = ?, provider = ?, model = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, serializeVector(vector), len(vector), provider, model, id)
	if err != nil {
		return fmt.Errorf("failed to update thought vector: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) UpdateThoughtVector(ctx context.Context, id string, vector []float32, provider, model string) error {
	return s.updateThoughtVectorWithQuerier(ctx, s.querier(), id, vector, provider, model)
}

// deleteThoughtsWithQuerier soft-deletes the given live thoughts and reports how many changed
func (s *SQLiteStorage) deleteThoughtsWithQuerier(ctx context.Context, q querier, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := "UPDATE thoughts SET deleted_at = ?, updated_at = ? WHERE deleted_at IS NULL AND id IN (" + placeholders + ")"

	now := time.Now().UTC()
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, now, now)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete thoughts: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStorage) DeleteThoughts(ctx context.Context, ids []string) (int, error) {
	return s.deleteThoughtsWithQuerier(ctx, s.querier(), ids)
}

// listThoughtsWithQuerier returns thoughts newest first
func (s *SQLiteStorage) listThoughtsWithQuerier(ctx context.Context, q querier, filter *ThoughtFilter) ([]*types.Thought, error) {
	if filter == nil {
		filter = &ThoughtFilter{}
	}

	query := "SELECT " + thoughtColumns + thoughtFrom + " WHERE 1 = 1"
	args := make([]interface{}, 0, 2)

	if !filter.IncludeDeleted {
		query += " AND t.deleted_at IS NULL"
	}
	if name := strings.TrimSpace(filter.Category); name != "" {
		// categories.name is COLLATE NOCASE
		query += " AND c.name = ?"
		args = append(args, name)
	}

	query += " ORDER BY t.created_at DESC, t.rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list thoughts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	thoughts := make([]*types.Thought, 0)
	for rows.Next() {
		thought, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		thoughts = append(thoughts, thought)
	}
	return thoughts, rows.Err()
}

func (s *SQLiteStorage) ListThoughts(ctx context.Context, filter *ThoughtFilter) ([]*types.Thought, error) {
	return s.listThoughtsWithQuerier(ctx, s.querier(), filter)
}

// Category operations

const categoryColumns = "id, name, description, is_active, created_at, updated_at"

func scanCategory(row scanner) (*types.Category, error) {
	var category types.Category
	err := row.Scan(
		&category.ID, &category.Name, &category.Description, &category.IsActive,
		&category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// createCategoryWithQuerier inserts a category; names are unique case-insensitively
func (s *SQLiteStorage) createCategoryWithQuerier(ctx context.Context, q querier, category *types.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	category.Description = strings.TrimSpace(category.Description)
	if err := category.Validate(); err != nil {
		return err
	}

	if _, err := s.getCategoryByNameWithQuerier(ctx, q, category.Name); err == nil {
		return fmt.Errorf("category %q: %w", category.Name, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	query := `
		INSERT INTO categories (id, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		category.ID, category.Name, category.Description, category.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *types.Category) error {
	return s.createCategoryWithQuerier(ctx, s.querier(), category)
}

func (s *SQLiteStorage) getCategoryWithQuerier(ctx context.Context, q querier, id string) (*types.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE id = ?"
	category, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return category, err
}

func (s *SQLiteStorage) GetCategory(ctx context.Context, id string) (*types.Category, error) {
	return s.getCategoryWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getCategoryByNameWithQuerier(ctx context.Context, q querier, name string) (*types.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE name = ?"
	category, err := scanCategory(q.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return category, err
}

func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*types.Category, error) {
	return s.getCategoryByNameWithQuerier(ctx, s.querier(), name)
}

func (s *SQLiteStorage) updateCategoryWithQuerier(ctx context.Context, q querier, category *types.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	category.Description = strings.TrimSpace(category.Description)
	if err := category.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE categories
		SET name = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		category.Name, category.Description, category.IsActive, now, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	category.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateCategory(ctx context.Context, category *types.Category) error {
	return s.updateCategoryWithQuerier(ctx, s.querier(), category)
}

// listCategoriesWithQuerier returns every category, active and archived, by name
func (s *SQLiteStorage) listCategoriesWithQuerier(ctx context.Context, q querier) ([]types.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories ORDER BY name COLLATE NOCASE"
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]types.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]types.Category, error) {
	return s.listCategoriesWithQuerier(ctx, s.querier())
}

// Profile operations

func (s *SQLiteStorage) getProfileWithQuerier(ctx context.Context, q querier) (*types.Profile, error) {
	var profile types.Profile
	err := q.QueryRowContext(ctx, "SELECT name, bio, updated_at FROM profile WHERE id = 1").Scan(
		&profile.Name, &profile.Bio, &profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *SQLiteStorage) GetProfile(ctx context.Context) (*types.Profile, error) {
	return s.getProfileWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) upsertProfileWithQuerier(ctx context.Context, q querier, profile *types.Profile) error {
	query := `
		INSERT INTO profile (id, name, bio, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			bio = excluded.bio,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Bio = strings.TrimSpace(profile.Bio)
	if _, err := q.ExecContext(ctx, query, profile.Name, profile.Bio, now); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	profile.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertProfile(ctx context.Context, profile *types.Profile) error {
	return s.upsertProfileWithQuerier(ctx, s.querier(), profile)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*types.Status, error) {
	status := &types.Status{ByDimension: make(map[int]int)}

	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN deleted_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM thoughts
	`).Scan(&status.LiveThoughts, &status.DeletedThoughts)
	if err != nil {
		return nil, fmt.Errorf("failed to count thoughts: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_active = 0 THEN 1 ELSE 0 END), 0)
		FROM categories
	`).Scan(&status.ActiveCategories, &status.ArchivedCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	rows, err := q.QueryContext(ctx, "SELECT dimension, COUNT(*) FROM thoughts WHERE deleted_at IS NULL GROUP BY dimension")
	if err != nil {
		return nil, fmt.Errorf("failed to count dimensions: %w", err)
	}
	for rows.Next() {
		var dimension, count int
		if err := rows.Scan(&dimension, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.ByDimension[dimension] = count
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Select the column itself rather than MAX() so drivers keep the TIMESTAMP type
	var last time.Time
	err = q.QueryRowContext(ctx, "SELECT created_at FROM thoughts WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT 1").Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read last thought time: %w", err)
	}
	status.LastThoughtAt = last

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// GetStatus summarizes stored thoughts and categories
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*types.Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// SchemaVersion reports the applied schema version
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (string, error) {
	return SchemaVersion(ctx, s.db)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transaction methods

func (t *sqliteTx) CreateThought(ctx context.Context, thought *types.Thought) error {
	return t.storage.createThoughtWithQuerier(ctx, t.querier(), thought)
}

func (t *sqliteTx) GetThought(ctx context.Context, id string) (*types.Thought, error) {
	return t.storage.getThoughtWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpdateThought(ctx context.Context, thought *types.Thought) error {
	return t.storage.updateThoughtWithQuerier(ctx, t.querier(), thought)
}

func (t *sqliteTx) UpdateThoughtVector(ctx context.Context, id string, vector []float32, provider, model string) error {
	return t.storage.updateThoughtVectorWithQuerier(ctx, t.querier(), id, vector, provider, model)
}

func (t *sqliteTx) DeleteThoughts(ctx context.Context, ids []string) (int, error) {
	return t.storage.deleteThoughtsWithQuerier(ctx, t.querier(), ids)
}

func (t *sqliteTx) ListThoughts(ctx context.Context, filter *ThoughtFilter) ([]*types.Thought, error) {
	return t.storage.listThoughtsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) CreateCategory(ctx context.Context, category *types.Category) error {
	return t.storage.createCategoryWithQuerier(ctx, t.querier(), category)
}

func (t *sqliteTx) GetCategory(ctx context.Context, id string) (*types.Category, error) {
	return t.storage.getCategoryWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetCategoryByName(ctx context.Context, name string) (*types.Category, error) {
	return t.storage.getCategoryByNameWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) UpdateCategory(ctx context.Context, category *types.Category) error {
	return t.storage.updateCategoryWithQuerier(ctx, t.querier(), category)
}

func (t *sqliteTx) ListCategories(ctx context.Context) ([]types.Category, error) {
	return t.storage.listCategoriesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetProfile(ctx context.Context) (*types.Profile, error) {
	return t.storage.getProfileWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpsertProfile(ctx context.Context, profile *types.Profile) error {
	return t.storage.upsertProfileWithQuerier(ctx, t.querier(), profile)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*types.Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
