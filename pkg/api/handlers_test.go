package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freyjatree/pkg/bptree"
	"freyjatree/pkg/storage"
)

// testMetrics is built once: NewMetrics registers its collectors with the
// global Prometheus registry, which rejects a second registration.
var testMetrics = NewMetrics()

func newTestServer() *Server {
	store := storage.NewMemoryBlobStore()
	tree := bptree.New[string, string](bptree.StringComparator(), bptree.WithFanout[string, string](4), bptree.WithStore[string, string](store))
	return NewServer(tree, store, ServerConfig{Port: 8080, APIKey: "secret", Fanout: 4}, testMetrics)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestContentTypeHandling(t *testing.T) {
	t.Run("encode/decode with content type", func(t *testing.T) {
		original := []byte(`{"name": "test", "value": 123}`)
		encoded := encodeDataWithContentType(original, ContentTypeJSON)
		decoded, decodedType := decodeDataWithContentType(encoded)

		assert.Equal(t, ContentTypeJSON, decodedType)
		assert.True(t, bytes.Equal(decoded, original))
	})

	t.Run("backward compatibility - no header", func(t *testing.T) {
		original := []byte("raw data without header")
		decoded, decodedType := decodeDataWithContentType(original)

		assert.Equal(t, ContentTypeRaw, decodedType)
		assert.True(t, bytes.Equal(decoded, original))
	})

	t.Run("content type header parsing", func(t *testing.T) {
		tests := []struct {
			header   string
			expected int
		}{
			{"application/json", ContentTypeJSON},
			{"application/json; charset=utf-8", ContentTypeJSON},
			{"text/plain", ContentTypeRaw},
			{"", ContentTypeRaw},
		}
		for _, tc := range tests {
			assert.Equal(t, tc.expected, getContentTypeFromHeader(tc.header))
		}
	})
}

func TestHandlePutGetDelete(t *testing.T) {
	s := newTestServer()

	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/kv/greeting", strings.NewReader(`"hello"`))
	putReq.Header.Set("Content-Type", "application/json")
	putReq = withURLParam(putReq, "key", "greeting")
	putRec := httptest.NewRecorder()
	s.handlePut(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/kv/greeting", nil)
	getReq = withURLParam(getReq, "key", "greeting")
	getRec := httptest.NewRecorder()
	s.handleGet(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, `"hello"`, getRec.Body.String())

	missingReq := httptest.NewRequest(http.MethodGet, "/api/v1/kv/missing", nil)
	missingReq = withURLParam(missingReq, "key", "missing")
	missingRec := httptest.NewRecorder()
	s.handleGet(missingRec, missingReq)
	assert.Equal(t, http.StatusNotFound, missingRec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/kv/greeting", nil)
	delReq = withURLParam(delReq, "key", "greeting")
	delRec := httptest.NewRecorder()
	s.handleDelete(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)

	delAgainRec := httptest.NewRecorder()
	s.handleDelete(delAgainRec, delReq)
	assert.Equal(t, http.StatusNotFound, delAgainRec.Code)
}

func TestHandleRangeAndStats(t *testing.T) {
	s := newTestServer()
	for _, k := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/kv/"+k, strings.NewReader(k))
		req = withURLParam(req, "key", k)
		rec := httptest.NewRecorder()
		s.handlePut(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rangeReq := httptest.NewRequest(http.MethodGet, "/api/v1/range?lower=a&upper=b", nil)
	rangeRec := httptest.NewRecorder()
	s.handleRange(rangeRec, rangeReq)
	require.Equal(t, http.StatusOK, rangeRec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rangeRec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	statsRec := httptest.NewRecorder()
	s.handleStats(statsRec, statsReq)
	require.Equal(t, http.StatusOK, statsRec.Code)
}

func TestHandleCommitAndLoad(t *testing.T) {
	s := newTestServer()
	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/kv/k", strings.NewReader("v"))
	putReq = withURLParam(putReq, "key", "k")
	putRec := httptest.NewRecorder()
	s.handlePut(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	commitReq := httptest.NewRequest(http.MethodPost, "/api/v1/commit", nil)
	commitRec := httptest.NewRecorder()
	s.handleCommit(commitRec, commitReq)
	require.Equal(t, http.StatusOK, commitRec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(commitRec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	rootID := data["root_id"].(string)
	require.NotEmpty(t, rootID)

	loadReq := httptest.NewRequest(http.MethodPost, "/api/v1/load/"+rootID, nil)
	loadReq = withURLParam(loadReq, "id", rootID)
	loadRec := httptest.NewRecorder()
	s.handleLoad(loadRec, loadReq)
	require.Equal(t, http.StatusOK, loadRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/kv/k", nil)
	getReq = withURLParam(getReq, "key", "k")
	getRec := httptest.NewRecorder()
	s.handleGet(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "v", getRec.Body.String())
}

func TestHandleDiff(t *testing.T) {
	s := newTestServer()
	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/kv/k", strings.NewReader("v1"))
	putReq = withURLParam(putReq, "key", "k")
	putRec := httptest.NewRecorder()
	s.handlePut(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	commitRec := httptest.NewRecorder()
	s.handleCommit(commitRec, httptest.NewRequest(http.MethodPost, "/api/v1/commit", nil))
	var commitResp APIResponse
	require.NoError(t, json.Unmarshal(commitRec.Body.Bytes(), &commitResp))
	snapshotID := commitResp.Data.(map[string]interface{})["root_id"].(string)

	updateReq := httptest.NewRequest(http.MethodPut, "/api/v1/kv/k", strings.NewReader("v2"))
	updateReq = withURLParam(updateReq, "key", "k")
	updateRec := httptest.NewRecorder()
	s.handlePut(updateRec, updateReq)
	require.Equal(t, http.StatusOK, updateRec.Code)

	body, err := json.Marshal(DiffRequest{OtherRootID: snapshotID})
	require.NoError(t, err)
	diffReq := httptest.NewRequest(http.MethodPost, "/api/v1/diff", bytes.NewReader(body))
	diffRec := httptest.NewRecorder()
	s.handleDiff(diffRec, diffReq)
	require.Equal(t, http.StatusOK, diffRec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(diffRec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}
