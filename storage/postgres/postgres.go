package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	hnswMaxDegree      = 16
	hnswEfConstruction = 64
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds connection settings for the postgres backend.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string
	// Table is the records table. Defaults to storage.DefaultTable.
	Table string
	// Dimensions fixes the vector column size when migrating. Zero leaves it unconstrained.
	Dimensions int
	// Migrate creates the extension, table and index when true.
	Migrate bool
	Logger  *slog.Logger
}

// row is the table layout shared with the hosted deployment.
type row struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	FilePath  string          `gorm:"column:file_path;type:text;not null;uniqueIndex"`
	Content   string          `gorm:"column:content;type:text;not null"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector"`
	Metadata  core.Metadata   `gorm:"column:metadata;type:jsonb;serializer:json"`
}

type scoredRow struct {
	row
	Score float32 `gorm:"column:score"`
}

// Store implements storage.RecordStore on PostgreSQL with pgvector.
type Store struct {
	db     *gorm.DB
	table  string
	logger *slog.Logger
}

var (
	_ storage.RecordStore = (*Store)(nil)
	_ storage.Searcher    = (*Store)(nil)
)

// Open connects to PostgreSQL and optionally migrates the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN required")
	}
	table := cfg.Table
	if table == "" {
		table = storage.DefaultTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(pgdriver.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	s := &Store{
		db:     db,
		table:  table,
		logger: log.With("component", "postgres", "table", table),
	}
	if cfg.Migrate {
		if err := s.migrate(ctx, cfg.Dimensions); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// ValidateTableName rejects names that are not plain SQL identifiers.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", storage.ErrInvalidQuery, name)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context, dims int) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("extension initialization failed: %w", err)
	}
	if err := db.Table(s.table).AutoMigrate(&row{}); err != nil {
		return fmt.Errorf("%s table migration failed: %w", s.table, err)
	}
	for _, stmt := range migrationStatements(s.table, dims) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s index initialization failed: %w", s.table, err)
		}
	}
	s.logger.Info("table migrations completed")
	return nil
}

// migrationStatements returns the DDL run after AutoMigrate. The HNSW index
// needs a fixed dimension, so it is only created when dims is known.
func migrationStatements(table string, dims int) []string {
	if dims <= 0 {
		return nil
	}
	return []string{
		fmt.Sprintf("ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d)", table, dims),
		fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_embedding_hnsw ON %s USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)",
			table, table, hnswMaxDegree, hnswEfConstruction),
	}
}

func similarityQuery(table string) string {
	return fmt.Sprintf(`
        SELECT *, 1 - (embedding <=> ?) AS score
        FROM %s
        WHERE 1 - (embedding <=> ?) >= ?
        ORDER BY embedding <=> ?
        LIMIT ?`, table)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListPaths returns the file_path of every row.
func (s *Store) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Table(s.table).Pluck("file_path", &paths).Error
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// DeletePaths deletes rows whose file_path is in paths.
func (s *Store) DeletePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Table(s.table).Where("file_path IN ?", paths).Delete(&row{})
	if res.Error != nil {
		return res.Error
	}
	s.logger.Debug("deleted rows", "requested", len(paths), "affected", res.RowsAffected)
	return nil
}

// UpsertRecord inserts the record or replaces the row with the same file_path.
func (s *Store) UpsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	r := toRow(record)
	return s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "embedding", "metadata"}),
	}).Create(&r).Error
}

// GetRecord returns the row stored under path.
func (s *Store) GetRecord(ctx context.Context, path string) (*core.Record, error) {
	var r row
	err := s.db.WithContext(ctx).Table(s.table).Where("file_path = ?", path).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toRecord(), nil
}

// FindSimilar ranks rows by cosine similarity using pgvector's <=> operator.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	v := pgvector.NewVector(vector)

	var rows []scoredRow
	err := s.db.WithContext(ctx).Raw(similarityQuery(s.table), v, v, minScore, v, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, len(rows))
	for i := range rows {
		results[i] = &core.SearchResult{Record: rows[i].toRecord(), Score: rows[i].Score}
	}
	return results, nil
}

func toRow(record *core.Record) row {
	return row{
		FilePath:  record.FilePath,
		Content:   record.Content,
		Embedding: pgvector.NewVector(record.Embedding),
		Metadata:  record.Metadata,
	}
}

func (r *row) toRecord() *core.Record {
	return &core.Record{
		FilePath:  r.FilePath,
		Content:   r.Content,
		Embedding: r.Embedding.Slice(),
		Metadata:  r.Metadata,
	}
}
