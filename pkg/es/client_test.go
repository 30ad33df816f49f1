package es

import (
	"aegis-rag-go/internal/config"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// newTestServer 模拟 Elasticsearch；响应都带有客户端校验所需的产品头。
func newTestServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (Client, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "documents"})
	require.NoError(t, err)
	return client, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestClient_IndexExists(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})

	exists, err := client.IndexExists(context.Background(), "documents")
	require.NoError(t, err)
	assert.False(t, exists)

	status.Store(http.StatusOK)
	exists, err = client.IndexExists(context.Background(), "documents")
	require.NoError(t, err)
	assert.True(t, exists)

	status.Store(http.StatusForbidden)
	_, err = client.IndexExists(context.Background(), "documents")
	assert.Error(t, err)
}

func TestClient_CreateIndex(t *testing.T) {
	client, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	})

	require.NoError(t, client.CreateIndex(context.Background(), "documents", IndexMapping))
	require.Len(t, reqs(), 1)
	assert.Equal(t, http.MethodPut, reqs()[0].Method)
	assert.Equal(t, "/documents", reqs()[0].Path)
	assert.JSONEq(t, IndexMapping, reqs()[0].Body)
}

func TestClient_IndexDocument(t *testing.T) {
	client, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	doc := map[string]interface{}{"content": "hello", "meta": map[string]interface{}{"doc_id": "a", "chunk_id": 0}}
	require.NoError(t, client.IndexDocument(context.Background(), "documents", "a-0", doc))

	require.Len(t, reqs(), 1)
	req := reqs()[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/documents/_doc/a-0", req.Path)
	assert.Contains(t, req.Query, "refresh=true")
	assert.JSONEq(t, `{"content":"hello","meta":{"doc_id":"a","chunk_id":0}}`, req.Body)
}

func TestClient_IndexDocumentError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"es_rejected_execution_exception"}`)
	})

	err := client.IndexDocument(context.Background(), "documents", "a-0", map[string]string{"content": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a-0")
}

func TestClient_DeleteByQuery(t *testing.T) {
	client, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"deleted":2,"failures":[]}`)
	})

	query := map[string]interface{}{"term": map[string]interface{}{"meta.doc_id": "a"}}
	n, err := client.DeleteByQuery(context.Background(), "documents", query)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	req := reqs()[0]
	assert.Equal(t, "/documents/_delete_by_query", req.Path)
	assert.Contains(t, req.Query, "refresh=true")
	assert.JSONEq(t, `{"query":{"term":{"meta.doc_id":"a"}}}`, req.Body)
}

func TestClient_Search(t *testing.T) {
	client, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"hits": {
				"total": {"value": 1, "relation": "eq"},
				"hits": [{
					"_index": "documents",
					"_id": "a-0",
					"_score": 1.5,
					"_source": {"content": "hello", "meta": {"doc_id": "a", "chunk_id": 0, "total_chunks": 1, "source": "a.txt"}},
					"highlight": {"content": ["<em>hello</em>"]}
				}]
			}
		}`)
	})

	body := map[string]interface{}{"size": 5, "query": map[string]interface{}{"match": map[string]interface{}{"content": "hello"}}}
	res, err := client.Search(context.Background(), "documents", body)
	require.NoError(t, err)
	require.Len(t, res.Hits.Hits, 1)
	assert.Equal(t, 1, res.Hits.Total.Value)

	hit := res.Hits.Hits[0]
	assert.Equal(t, "a-0", hit.ID)
	assert.InDelta(t, 1.5, hit.Score, 1e-9)
	assert.Equal(t, []string{"<em>hello</em>"}, hit.Highlight["content"])
	var src map[string]interface{}
	require.NoError(t, json.Unmarshal(hit.Source, &src))
	assert.Equal(t, "hello", src["content"])

	req := reqs()[0]
	assert.Equal(t, "/documents/_search", req.Path)
	assert.JSONEq(t, `{"size":5,"query":{"match":{"content":"hello"}}}`, req.Body)
}

func TestClient_SearchError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"cluster_block_exception"}`)
	})

	_, err := client.Search(context.Background(), "documents", map[string]interface{}{"size": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster_block_exception")
}
