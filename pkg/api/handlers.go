package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"freyjatree/pkg/bptree"
)

// Server holds the API server state. tree is guarded by mu because Load
// swaps the pointer to a freshly materialized tree out from under any
// request in flight.
type Server struct {
	mu      sync.RWMutex
	tree    *bptree.Tree[string, string]
	store   bptree.BlobStore
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(tree *bptree.Tree[string, string], store bptree.BlobStore, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		tree:    tree,
		store:   store,
		config:  config,
		metrics: metrics,
	}
}

func (s *Server) currentTree() *bptree.Tree[string, string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handlePut godoc
//
//	@Summary		Put a key-value pair
//	@Description	Store a key-value pair in the tree
//	@Tags			kv
//	@Accept			octet-stream,json
//	@Produce		json
//	@Param			key		path		string	true	"Key"
//	@Param			body	body		[]byte	true	"Value"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/kv/{key} [put]
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := url.QueryUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		s.metrics.RecordTreeOperation("set", false, time.Since(start))
		sendError(w, "Key is required", http.StatusBadRequest)
		return
	}

	body := make([]byte, r.ContentLength)
	if _, err := r.Body.Read(body); err != nil && err.Error() != "EOF" {
		s.metrics.RecordTreeOperation("set", false, time.Since(start))
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	contentType := getContentTypeFromHeader(r.Header.Get("Content-Type"))
	dataToStore := body
	if contentType == ContentTypeJSON {
		var jsonData interface{}
		if err := json.Unmarshal(body, &jsonData); err != nil {
			s.metrics.RecordTreeOperation("set", false, time.Since(start))
			sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
			return
		}
		formatted, err := json.Marshal(jsonData)
		if err != nil {
			s.metrics.RecordTreeOperation("set", false, time.Since(start))
			sendError(w, "Failed to format JSON", http.StatusInternalServerError)
			return
		}
		dataToStore = formatted
	}
	encoded := encodeDataWithContentType(dataToStore, contentType)

	s.mu.RLock()
	_, err = s.tree.Set(key, string(encoded), true)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordTreeOperation("set", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to set key: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordTreeOperation("set", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Key-value pair stored successfully"})
}

// handleGet godoc
//
//	@Summary		Get a value by key
//	@Description	Retrieve the value for a given key
//	@Tags			kv
//	@Accept			json
//	@Produce		octet-stream,json
//	@Param			key	path		string	true	"Key"
//	@Success		200	{string}	byte
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/kv/{key} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key := chi.URLParam(r, "key")
	if key == "" {
		s.metrics.RecordTreeOperation("get", false, time.Since(start))
		sendError(w, "Key is required", http.StatusBadRequest)
		return
	}

	tree := s.currentTree()
	s.mu.RLock()
	encodedValue, found, err := tree.Get(key)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordTreeOperation("get", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to get value: %v", err), http.StatusInternalServerError)
		return
	}
	if !found {
		s.metrics.RecordTreeOperation("get", false, time.Since(start))
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	data, contentType := decodeDataWithContentType([]byte(encodedValue))
	s.metrics.RecordTreeOperation("get", true, time.Since(start))

	w.Header().Set("Content-Type", getContentTypeHeader(contentType))
	if _, err := w.Write(data); err != nil {
		sendError(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// handleDelete godoc
//
//	@Summary		Delete a key-value pair
//	@Description	Delete the key-value pair for a given key
//	@Tags			kv
//	@Accept			json
//	@Produce		json
//	@Param			key	path		string	true	"Key"
//	@Success		200	{object}	map[string]string
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/kv/{key} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key := chi.URLParam(r, "key")
	if key == "" {
		s.metrics.RecordTreeOperation("delete", false, time.Since(start))
		sendError(w, "Key is required", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	found, err := s.tree.Delete(key)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordTreeOperation("delete", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to delete key: %v", err), http.StatusInternalServerError)
		return
	}
	if !found {
		s.metrics.RecordTreeOperation("delete", false, time.Since(start))
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	s.metrics.RecordTreeOperation("delete", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Key deleted successfully"})
}

// handleRange godoc
//
//	@Summary		Scan a range of keys
//	@Description	List pairs with lower <= key <= upper in ascending order
//	@Tags			kv
//	@Produce		json
//	@Param			lower			query	string	false	"Lower bound (unbounded if omitted)"
//	@Param			upper			query	string	false	"Upper bound (unbounded if omitted)"
//	@Param			lower_excl	query	bool	false	"Exclude the lower bound"
//	@Param			upper_excl	query	bool	false	"Exclude the upper bound"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		500	{object}	map[string]string
//	@Router			/range [get]
//	@Security		ApiKeyAuth
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	var lower, upper *string
	if v, ok := q["lower"]; ok && len(v) > 0 {
		lower = &v[0]
	}
	if v, ok := q["upper"]; ok && len(v) > 0 {
		upper = &v[0]
	}
	lowerIncl := q.Get("lower_excl") != "true"
	upperIncl := q.Get("upper_excl") != "true"

	tree := s.currentTree()
	s.mu.RLock()
	pairs, err := tree.GetRange(lower, upper, lowerIncl, upperIncl)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordTreeOperation("range", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to scan range: %v", err), http.StatusInternalServerError)
		return
	}

	results := make([]KeyValue, 0, len(pairs))
	for _, p := range pairs {
		data, _ := decodeDataWithContentType([]byte(p.Value))
		results = append(results, KeyValue{Key: p.Key, Value: string(data)})
	}

	s.metrics.RecordTreeOperation("range", true, time.Since(start))
	sendSuccess(w, map[string]interface{}{"pairs": results})
}

// handleCommit godoc
//
//	@Summary		Commit the tree
//	@Description	Persist every unsaved node to the blob store and return the root content id
//	@Tags			persistence
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/commit [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rootID, err := s.tree.Commit()
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordCommit(false)
		sendError(w, fmt.Sprintf("Failed to commit: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordCommit(true)
	sendSuccess(w, map[string]string{"root_id": rootID})
}

// handleLoad godoc
//
//	@Summary		Load a committed tree
//	@Description	Replace the live tree with the one rooted at the given content id
//	@Tags			persistence
//	@Produce		json
//	@Param			id	path		string	true	"Root content id"
//	@Success		200	{object}	map[string]string
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/load/{id} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		sendError(w, "Root content id is required", http.StatusBadRequest)
		return
	}

	loaded, err := bptree.Load[string, string](id, bptree.StringComparator(), s.store, bptree.WithFanout[string, string](s.config.Fanout))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to load root %s: %v", id, err), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.tree = loaded
	s.mu.Unlock()

	sendSuccess(w, map[string]string{"message": "Tree loaded successfully", "root_id": id})
}

// handleDiff godoc
//
//	@Summary		Diff against a committed tree
//	@Description	Compare the live tree with a previously committed root
//	@Tags			persistence
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DiffRequest	true	"Diff request"
//	@Success		200		{object}	DiffResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/diff [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordDiff(false)
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if req.OtherRootID == "" {
		s.metrics.RecordDiff(false)
		sendError(w, "other_root_id is required", http.StatusBadRequest)
		return
	}

	other, err := bptree.Load[string, string](req.OtherRootID, bptree.StringComparator(), s.store, bptree.WithFanout[string, string](s.config.Fanout))
	if err != nil {
		s.metrics.RecordDiff(false)
		sendError(w, fmt.Sprintf("Failed to load root %s: %v", req.OtherRootID, err), http.StatusInternalServerError)
		return
	}

	var resp DiffResponse
	tree := s.currentTree()
	s.mu.RLock()
	err = tree.DiffAgainst(other, bptree.DiffCallbacks[string, string]{
		OnlyThis: func(k, v string) (bool, error) {
			data, _ := decodeDataWithContentType([]byte(v))
			resp.OnlyThis = append(resp.OnlyThis, KeyValue{Key: k, Value: string(data)})
			return true, nil
		},
		OnlyOther: func(k, v string) (bool, error) {
			data, _ := decodeDataWithContentType([]byte(v))
			resp.OnlyOther = append(resp.OnlyOther, KeyValue{Key: k, Value: string(data)})
			return true, nil
		},
		Different: func(k, tv, ov string) (bool, error) {
			td, _ := decodeDataWithContentType([]byte(tv))
			od, _ := decodeDataWithContentType([]byte(ov))
			resp.Different = append(resp.Different, DiffedValue{Key: k, ThisValue: string(td), OtherValue: string(od)})
			return true, nil
		},
	})
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordDiff(false)
		if errors.Is(err, bptree.ErrComparatorMismatch) {
			sendError(w, "Comparator mismatch between trees", http.StatusBadRequest)
			return
		}
		sendError(w, fmt.Sprintf("Failed to diff: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordDiff(true)
	sendSuccess(w, resp)
}

// handleStats godoc
//
//	@Summary		Get tree statistics
//	@Description	Get statistics about the tree including size and height
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		500	{object}	map[string]string
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tree := s.currentTree()
	s.mu.RLock()
	size, err := tree.Size()
	height := tree.Height()
	s.mu.RUnlock()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to compute stats: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateTreeStats(size, height)
	sendSuccess(w, map[string]interface{}{"size": size, "height": height})
}

// Content type constants
const (
	ContentTypeRaw    = 0
	ContentTypeJSON   = 1
	ContentTypeHeader = 2 // Size of the header (type byte + null terminator)
)

// encodeDataWithContentType encodes data with content-type metadata
func encodeDataWithContentType(data []byte, contentType int) []byte {
	header := make([]byte, ContentTypeHeader)
	header[0] = byte(contentType)
	header[1] = 0

	return append(header, data...)
}

// decodeDataWithContentType decodes data and extracts content-type metadata
func decodeDataWithContentType(encodedData []byte) ([]byte, int) {
	if len(encodedData) < ContentTypeHeader {
		return encodedData, ContentTypeRaw
	}

	contentType := int(encodedData[0])
	if encodedData[1] != 0 {
		return encodedData, ContentTypeRaw
	}

	return encodedData[ContentTypeHeader:], contentType
}

// getContentTypeFromHeader extracts content type from HTTP Content-Type header
func getContentTypeFromHeader(contentTypeHeader string) int {
	if strings.Contains(contentTypeHeader, "application/json") {
		return ContentTypeJSON
	}
	return ContentTypeRaw
}

// getContentTypeHeader returns the appropriate HTTP Content-Type header for a content type
func getContentTypeHeader(contentType int) string {
	switch contentType {
	case ContentTypeJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// startMetricsUpdater periodically updates tree statistics.
func (s *Server) startMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		tree := s.currentTree()
		s.mu.RLock()
		size, err := tree.Size()
		height := tree.Height()
		s.mu.RUnlock()
		if err == nil {
			s.metrics.UpdateTreeStats(size, height)
		}
	}
}
