package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "service-role-key"

// fakePostgREST serves a single table from memory.
type fakePostgREST struct {
	mu       sync.Mutex
	rows     map[string]wireRecord
	requests []string
	failWith int
	// maxRows caps every response like the PostgREST db-max-rows setting.
	maxRows int
}

func newFake() *fakePostgREST {
	return &fakePostgREST{rows: make(map[string]wireRecord)}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method)
	if r.Header.Get("apikey") != testKey || r.Header.Get("Authorization") != "Bearer "+testKey {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid key"}`)
		return
	}
	if r.URL.Path != "/rest/v1/codebase_embeddings" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"42P01","message":"relation does not exist"}`)
		return
	}
	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		fmt.Fprint(w, `{"code":"XX000","message":"boom"}`)
		return
	}

	q := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		if eq, ok := strings.CutPrefix(q.Get("file_path"), "eq."); ok {
			var out []wireRecord
			if row, found := f.rows[eq]; found {
				row.Embedding = json.RawMessage(strconv.Quote(string(row.Embedding)))
				out = append(out, row)
			}
			json.NewEncoder(w).Encode(out)
			return
		}
		keys := make([]string, 0, len(f.rows))
		for k := range f.rows {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		limit, _ := strconv.Atoi(q.Get("limit"))
		if f.maxRows > 0 && limit > f.maxRows {
			limit = f.maxRows
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		out := []map[string]string{}
		for i := offset; i < len(keys) && i < offset+limit; i++ {
			out = append(out, map[string]string{"file_path": keys[i]})
		}
		if strings.Contains(r.Header.Get("Prefer"), "count=exact") {
			if len(out) == 0 {
				w.Header().Set("Content-Range", fmt.Sprintf("*/%d", len(keys)))
			} else {
				w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", offset, offset+len(out)-1, len(keys)))
			}
		}
		json.NewEncoder(w).Encode(out)
	case http.MethodDelete:
		for _, p := range parseInFilter(q.Get("file_path")) {
			delete(f.rows, p)
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		if q.Get("on_conflict") != "file_path" || !strings.Contains(r.Header.Get("Prefer"), "resolution=merge-duplicates") {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"code":"23505","message":"duplicate key"}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var row wireRecord
		if err := json.Unmarshal(body, &row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.rows[row.FilePath] = row
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func parseInFilter(filter string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(filter, "in.("), ")")
	var out []string
	var cur strings.Builder
	inQuote, escaped := false, false
	for _, r := range inner {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inner != "" {
		out = append(out, cur.String())
	}
	return out
}

func setupStore(t *testing.T, fake *fakePostgREST, pageSize int) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{URL: srv.URL + "/", Key: testKey, PageSize: pageSize})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(path, content string) *core.Record {
	return &core.Record{
		FilePath:  path,
		Content:   content,
		Embedding: []float32{0.5, -0.25},
		Metadata:  core.Metadata{FileExtension: ".md", FileSizeBytes: int64(len(content))},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Key: testKey})
	assert.Error(t, err)

	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)

	_, err = New(Config{URL: "not a url", Key: testKey})
	assert.Error(t, err)
}

func TestStore_UpsertGetListDelete(t *testing.T) {
	fake := newFake()
	store := setupStore(t, fake, 0)
	ctx := context.Background()

	require.NoError(t, store.UpsertRecord(ctx, record("docs/a.md", "alpha")))
	require.NoError(t, store.UpsertRecord(ctx, record("docs/b.md", "beta")))
	require.NoError(t, store.UpsertRecord(ctx, record("docs/a.md", "alpha v2")))

	got, err := store.GetRecord(ctx, "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, record("docs/a.md", "alpha v2"), got)

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md", "docs/b.md"}, paths)

	require.NoError(t, store.DeletePaths(ctx, "docs/a.md"))
	_, err = store.GetRecord(ctx, "docs/a.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListPathsPaginates(t *testing.T) {
	fake := newFake()
	for i := range 7 {
		p := fmt.Sprintf("f%02d.txt", i)
		fake.rows[p] = wireRecord{FilePath: p}
	}
	store := setupStore(t, fake, 3)

	paths, err := store.ListPaths(context.Background())
	require.NoError(t, err)
	assert.Len(t, paths, 7)
	assert.Len(t, fake.requests, 3)
}

func TestStore_ListPathsServerRowCap(t *testing.T) {
	fake := newFake()
	fake.maxRows = 500
	for i := range 1200 {
		p := fmt.Sprintf("src/f%04d.go", i)
		fake.rows[p] = wireRecord{FilePath: p}
	}
	store := setupStore(t, fake, 0)

	paths, err := store.ListPaths(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 1200)
	assert.Equal(t, "src/f0000.go", paths[0])
	assert.Equal(t, "src/f1199.go", paths[1199])
	assert.Len(t, fake.requests, 3)
}

func TestStore_ListPathsWithoutCount(t *testing.T) {
	fake := newFake()
	fake.maxRows = 2
	for i := range 5 {
		p := fmt.Sprintf("f%d", i)
		fake.rows[p] = wireRecord{FilePath: p}
	}
	srv := httptest.NewServer(stripContentRange(fake))
	t.Cleanup(srv.Close)
	store, err := New(Config{URL: srv.URL, Key: testKey})
	require.NoError(t, err)

	paths, err := store.ListPaths(context.Background())
	require.NoError(t, err)
	assert.Len(t, paths, 5)
}

// stripContentRange hides the total so paging must stop on an empty page.
func stripContentRange(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del("Prefer")
		next.ServeHTTP(w, r)
	})
}

func TestStore_DeleteEmptyMakesNoRequest(t *testing.T) {
	fake := newFake()
	store := setupStore(t, fake, 0)

	require.NoError(t, store.DeletePaths(context.Background()))
	assert.Empty(t, fake.requests)
}

func TestStore_DeleteQuotedPaths(t *testing.T) {
	fake := newFake()
	odd := []string{`dir,with/comma.txt`, `quote"d.txt`, `back\slash.txt`, "plain.txt"}
	for _, p := range odd {
		fake.rows[p] = wireRecord{FilePath: p}
	}
	store := setupStore(t, fake, 0)

	require.NoError(t, store.DeletePaths(context.Background(), odd[:3]...))
	assert.Len(t, fake.rows, 1)
	assert.Contains(t, fake.rows, "plain.txt")
}

func TestStore_UpsertRejectsBlank(t *testing.T) {
	fake := newFake()
	store := setupStore(t, fake, 0)

	err := store.UpsertRecord(context.Background(), record("a.md", "  \n\t"))
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
	assert.Empty(t, fake.requests)
}

func TestStore_APIError(t *testing.T) {
	fake := newFake()
	fake.failWith = http.StatusInternalServerError
	store := setupStore(t, fake, 0)

	_, err := store.ListPaths(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(XX000) boom")

	err = store.UpsertRecord(context.Background(), record("a.md", "alpha"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.md")
}

func TestStore_BadKey(t *testing.T) {
	srv := httptest.NewServer(newFake())
	defer srv.Close()

	store, err := New(Config{URL: srv.URL, Key: "wrong"})
	require.NoError(t, err)

	_, err = store.ListPaths(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestStore_CanceledContext(t *testing.T) {
	fake := newFake()
	store := setupStore(t, fake, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListPaths(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.requests)
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, `("a","b c")`, quoteList([]string{"a", "b c"}))
	assert.Equal(t, `("x\"y","p\\q")`, quoteList([]string{`x"y`, `p\q`}))
}

func TestDecodeEmbedding(t *testing.T) {
	v, err := decodeEmbedding(json.RawMessage(`"[0.5,-1]"`))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1}, v)

	v, err = decodeEmbedding(json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	v, err = decodeEmbedding(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = decodeEmbedding(json.RawMessage(`"nope"`))
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}
