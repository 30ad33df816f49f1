package service

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/pkg/es"
	"aegis-rag-go/pkg/es/estest"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearchService(fake *estest.Fake) SearchService {
	return NewSearchService(fake, config.ElasticsearchConfig{IndexName: "documents"}, config.RetrievalConfig{TopK: 5, Timeout: time.Second})
}

func record(docID string, chunkID, total int, content string) model.IndexRecord {
	return model.IndexRecord{
		Content: content,
		Meta:    model.ChunkMeta{DocID: docID, ChunkID: chunkID, TotalChunks: total, Source: docID + ".txt"},
	}
}

func TestSearch_ReturnsHitsInResponseOrder(t *testing.T) {
	fake := estest.NewFake()
	fake.SearchFunc = func(map[string]interface{}) *es.SearchResponse {
		return estest.Response(
			estest.NewHit("a-1", 3.2, record("a", 1, 3, "Paris is the capital of France."), "<em>Paris</em> is the capital"),
			estest.NewHit("b-0", 1.1, record("b", 0, 1, "France borders Spain.")),
		)
	}
	svc := newTestSearchService(fake)

	hits, err := svc.Search(context.Background(), "capital of France", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a-1", hits[0].ID)
	assert.Equal(t, "Paris is the capital of France.", hits[0].Content)
	assert.Equal(t, model.ChunkMeta{DocID: "a", ChunkID: 1, TotalChunks: 3, Source: "a.txt"}, hits[0].Meta)
	assert.InDelta(t, 3.2, hits[0].Score, 1e-9)
	assert.Equal(t, []string{"<em>Paris</em> is the capital"}, hits[0].Highlights)
	assert.Equal(t, "b-0", hits[1].ID)
	assert.Nil(t, hits[1].Highlights)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearch_BuildsMatchQuery(t *testing.T) {
	fake := estest.NewFake()
	svc := newTestSearchService(fake)

	_, err := svc.Search(context.Background(), "leave policy", 3)
	require.NoError(t, err)
	require.Len(t, fake.Searches, 1)

	body := fake.Searches[0]
	assert.Equal(t, 3, body["size"])
	assert.Equal(t, map[string]interface{}{"match": map[string]interface{}{"content": "leave policy"}}, body["query"])
	assert.Contains(t, body, "highlight")
}

func TestSearch_NoHitsIsEmptyNotError(t *testing.T) {
	svc := newTestSearchService(estest.NewFake())

	hits, err := svc.Search(context.Background(), "nothing matches", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearch_BackendFailure(t *testing.T) {
	fake := estest.NewFake()
	fake.SearchErr = errors.New("connection refused")
	svc := newTestSearchService(fake)

	hits, err := svc.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, model.ErrSearch)
	assert.Nil(t, hits)
}

func TestSearch_InvalidSize(t *testing.T) {
	fake := estest.NewFake()
	svc := newTestSearchService(fake)

	_, err := svc.Search(context.Background(), "q", 0)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
	assert.Empty(t, fake.Searches)
}

func TestSearch_MalformedSource(t *testing.T) {
	fake := estest.NewFake()
	fake.SearchFunc = func(map[string]interface{}) *es.SearchResponse {
		return estest.Response(es.Hit{ID: "x", Source: []byte(`"not an object"`)})
	}
	svc := newTestSearchService(fake)

	_, err := svc.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, model.ErrSearch)
}

func TestListChunks(t *testing.T) {
	fake := estest.NewFake()
	fake.SearchFunc = func(map[string]interface{}) *es.SearchResponse {
		return estest.Response(estest.NewHit("a-0", 1, record("a", 0, 1, "hello")))
	}
	svc := newTestSearchService(fake)

	hits, err := svc.ListChunks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hello", hits[0].Content)
	assert.Equal(t, 10, fake.Searches[0]["size"])
	assert.Contains(t, fake.Searches[0]["query"], "match_all")

	_, err = svc.ListChunks(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}
