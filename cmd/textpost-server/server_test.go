package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/api"
	"github.com/wusb-radio/textpost/pkg/textpost/config"
	memoryrepo "github.com/wusb-radio/textpost/pkg/textpost/repo/memory"
	memorystorage "github.com/wusb-radio/textpost/pkg/textpost/storage/memory"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	repo := memoryrepo.New()
	svc, err := textpost.New(
		textpost.WithRepository(repo),
		textpost.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	cfg, err := config.Load(config.WithEnvironment(config.EnvTest))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPServer(svc, repo, cfg, logger).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, privileged bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if privileged {
		req.Header.Set(api.PrivilegedHeader, "true")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/posts", map[string]any{
		"title":     "Morning Show Returns",
		"author_id": uuid.NewString(),
		"body":      "The morning show is back on Monday.",
	}, false)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created api.PostResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = doJSON(t, h, http.MethodPut, "/api/v1/posts/"+created.ID, map[string]any{
		"title":        created.Title,
		"body":         created.Body,
		"is_published": true,
		"version":      created.Version,
	}, false)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var published api.PostResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &published))
	require.NotNil(t, published.PublishedAt)

	// Privileged silent fix keeps the post looking unedited.
	rr = doJSON(t, h, http.MethodPut, "/api/v1/posts/"+created.ID, map[string]any{
		"title":        created.Title,
		"body":         "The morning show is back on Tuesday.",
		"is_published": true,
		"version":      published.Version,
		"silent_edit":  true,
	}, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/api/v1/posts/slug/morning-show-returns", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var got api.PostResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "The morning show is back on Tuesday.", got.Body)
	assert.False(t, got.WasEdited)
	assert.Equal(t, 0, got.EditCount)
	assert.True(t, published.PublishedAt.Equal(*got.PublishedAt))
}

func TestAdminRoutesRequirePrivilege(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/admin/stats", nil, false)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/admin/stats", nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
}
