// Package supabase stores records in a Supabase table through its PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
	"github.com/supabase-community/postgrest-go"
)

const (
	restPath        = "/rest/v1"
	defaultPageSize = 1000
	columnPath      = "file_path"
	recordColumns   = "file_path,content,embedding,metadata"
)

// Config holds the connection settings for a Supabase project.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// Key is the service role key; it is sent as both apikey and bearer token.
	Key   string
	Table string
	// PageSize bounds each ListPaths request. Defaults to 1000, the PostgREST max-rows default.
	// Servers with a lower cap are handled; paging follows the rows actually returned.
	PageSize int
	// Transport carries the HTTP requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Store implements storage.RecordStore against a PostgREST table.
type Store struct {
	endpoint  string
	key       string
	table     string
	pageSize  int
	transport http.RoundTripper
	logger    *slog.Logger
}

var _ storage.RecordStore = (*Store)(nil)

// wireRecord is the JSON row shape as read back. Embedding is raw because
// PostgREST returns pgvector columns as a string literal like "[0.1,0.2]".
type wireRecord struct {
	FilePath  string          `json:"file_path"`
	Content   string          `json:"content"`
	Embedding json.RawMessage `json:"embedding,omitempty"`
	Metadata  core.Metadata   `json:"metadata"`
}

type upsertRow struct {
	FilePath  string        `json:"file_path"`
	Content   string        `json:"content"`
	Embedding []float32     `json:"embedding"`
	Metadata  core.Metadata `json:"metadata"`
}

// New validates cfg and returns a Store. No request is made.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase URL required")
	}
	if cfg.Key == "" {
		return nil, errors.New("supabase key required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid supabase URL %q", cfg.URL)
	}
	table := cfg.Table
	if table == "" {
		table = storage.DefaultTable
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		endpoint:  base.String() + restPath,
		key:       cfg.Key,
		table:     table,
		pageSize:  pageSize,
		transport: transport,
		logger:    logger.With("component", "supabase", "table", table),
	}, nil
}

// contextTransport binds every request of one operation to its context.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// from starts a query on the table for a single operation.
func (s *Store) from(ctx context.Context) (*postgrest.QueryBuilder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := postgrest.NewClient(s.endpoint, "", map[string]string{
		"apikey":        s.key,
		"Authorization": "Bearer " + s.key,
	})
	if client.ClientError != nil {
		return nil, client.ClientError
	}
	client.Transport.Parent = contextTransport{ctx: ctx, base: s.transport}
	return client.From(s.table), nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	if c, ok := s.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// ListPaths pages through select=file_path with an exact count. Each page
// starts where the rows actually returned end, so a server row cap below
// PageSize shortens pages without ending the listing early.
func (s *Store) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string
	for {
		q, err := s.from(ctx)
		if err != nil {
			return nil, err
		}
		offset := len(paths)
		var page []struct {
			FilePath string `json:"file_path"`
		}
		total, err := q.Select(columnPath, "exact", false).
			Order(columnPath, &postgrest.OrderOpts{Ascending: true}).
			Range(offset, offset+s.pageSize-1, "").
			ExecuteTo(&page)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.table, err)
		}
		for _, row := range page {
			paths = append(paths, row.FilePath)
		}
		if len(page) == 0 || (total > 0 && int64(len(paths)) >= total) {
			break
		}
	}
	s.logger.Debug("listed paths", "count", len(paths))
	return paths, nil
}

// DeletePaths issues DELETE ?file_path=in.(...).
func (s *Store) DeletePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	q, err := s.from(ctx)
	if err != nil {
		return err
	}
	if _, _, err := q.Delete("minimal", "").Filter(columnPath, "in", quoteList(paths)).Execute(); err != nil {
		return fmt.Errorf("delete from %s: %w", s.table, err)
	}
	return nil
}

// UpsertRecord POSTs the row with merge-duplicates resolution on file_path.
func (s *Store) UpsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	q, err := s.from(ctx)
	if err != nil {
		return err
	}
	row := upsertRow{
		FilePath:  record.FilePath,
		Content:   record.Content,
		Embedding: record.Embedding,
		Metadata:  record.Metadata,
	}
	if _, _, err := q.Upsert(row, columnPath, "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert %s into %s: %w", record.FilePath, s.table, err)
	}
	return nil
}

// GetRecord fetches the row whose file_path equals path.
func (s *Store) GetRecord(ctx context.Context, path string) (*core.Record, error) {
	q, err := s.from(ctx)
	if err != nil {
		return nil, err
	}
	var rows []wireRecord
	if _, err := q.Select(recordColumns, "", false).Eq(columnPath, path).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", path, s.table, err)
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	embedding, err := decodeEmbedding(rows[0].Embedding)
	if err != nil {
		return nil, err
	}
	return &core.Record{
		FilePath:  rows[0].FilePath,
		Content:   rows[0].Content,
		Embedding: embedding,
		Metadata:  rows[0].Metadata,
	}, nil
}

// quoteList renders the parenthesized value list of an in filter with
// every value double quoted.
func quoteList(values []string) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		for _, r := range v {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte(')')
	return b.String()
}

// decodeEmbedding accepts either a JSON array or a pgvector string literal.
func decodeEmbedding(raw json.RawMessage) ([]float32, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var literal string
		if err := json.Unmarshal(raw, &literal); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		raw = json.RawMessage(literal)
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return v, nil
}
