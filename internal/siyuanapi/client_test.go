package siyuanapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL, "secret-token")
}

func TestCountBlocks(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret-token", r.Header.Get("Authorization"))
		var req sqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT COUNT(*) FROM blocks", req.Stmt)
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":[{"COUNT(*)":42}]}`))
	})

	n, err := c.CountBlocks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestCountBlocks_NonZeroCode(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1,"msg":"bad sql","data":null}`))
	})

	_, err := c.CountBlocks(context.Background())
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad sql", apiErr.Message)
}

func TestBlocksUpdatedAfter_UsesBlockCountAsLimit(t *testing.T) {
	var gotStmt string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req sqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Stmt == "SELECT COUNT(*) FROM blocks" {
			_, _ = w.Write([]byte(`{"code":0,"msg":"","data":[{"COUNT(*)":3}]}`))
			return
		}
		gotStmt = req.Stmt
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":[]}`))
	})

	_, err := c.BlocksUpdatedAfter(context.Background(), "20260101000000")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM blocks WHERE updated > '20260101000000' LIMIT 3", gotStmt)
}

func TestSortNodes_ParentsBeforeChildren(t *testing.T) {
	blocks := []Block{
		{ID: "c1", ParentID: "p1", Sort: 0},
		{ID: "p2", ParentID: "", Sort: 1},
		{ID: "p1", ParentID: "", Sort: 0},
		{ID: "c2", ParentID: "p1", Sort: 1},
	}
	sorted := sortNodes(blocks)
	ids := make([]string, len(sorted))
	for i, b := range sorted {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"p1", "c1", "c2", "p2"}, ids)
}

func TestGetDocumentMarkdown(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/lute/copyStdMarkdown", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{"markdown":"# Hello\n"}}`))
	})

	md, err := c.GetDocumentMarkdown(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n", md)
}

func TestGetDocumentMarkdown_HTTPError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetDocumentMarkdown(context.Background(), "doc-1")
	require.Error(t, err)
}
