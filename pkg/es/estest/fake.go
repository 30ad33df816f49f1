// Package estest provides an in-memory es.Client for tests.
package estest

import (
	"aegis-rag-go/pkg/es"
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Fake is an in-memory es.Client. Documents are stored as their JSON encoding, so
// what tests observe is exactly what would have been sent to Elasticsearch.
type Fake struct {
	mu sync.Mutex

	Indices map[string]string // index name -> creation body
	Docs    map[string]map[string]json.RawMessage

	// Optional hooks; a non-nil return short-circuits the call.
	ExistsErr   error
	CreateErr   error
	IndexErr    func(id string) error
	DeleteErr   error
	SearchErr   error
	SearchFunc  func(body map[string]interface{}) *es.SearchResponse
	CreateCalls int
	IndexCalls  []string
	Deletes     []map[string]interface{}
	Searches    []map[string]interface{}
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Indices: make(map[string]string),
		Docs:    make(map[string]map[string]json.RawMessage),
	}
}

func (f *Fake) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExistsErr != nil {
		return false, f.ExistsErr
	}
	_, ok := f.Indices[index]
	return ok, nil
}

func (f *Fake) CreateIndex(_ context.Context, index string, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Indices[index] = body
	return nil
}

func (f *Fake) IndexDocument(_ context.Context, index, id string, doc interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IndexCalls = append(f.IndexCalls, id)
	if f.IndexErr != nil {
		if err := f.IndexErr(id); err != nil {
			return err
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if f.Docs[index] == nil {
		f.Docs[index] = make(map[string]json.RawMessage)
	}
	f.Docs[index][id] = b
	return nil
}

// DeleteByQuery records the query and applies it when it is the
// doc_id term + chunk_id range filter used for stale-chunk pruning.
func (f *Fake) DeleteByQuery(_ context.Context, index string, query map[string]interface{}) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes = append(f.Deletes, query)
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	docID, minChunk, ok := staleFilter(query)
	if !ok {
		return 0, nil
	}
	deleted := 0
	for id, raw := range f.Docs[index] {
		var rec struct {
			Meta struct {
				DocID   string `json:"doc_id"`
				ChunkID int    `json:"chunk_id"`
			} `json:"meta"`
		}
		if json.Unmarshal(raw, &rec) != nil {
			continue
		}
		if rec.Meta.DocID == docID && rec.Meta.ChunkID >= minChunk {
			delete(f.Docs[index], id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *Fake) Search(_ context.Context, _ string, body map[string]interface{}) (*es.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches = append(f.Searches, body)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if f.SearchFunc != nil {
		return f.SearchFunc(body), nil
	}
	return &es.SearchResponse{}, nil
}

// IDs returns the sorted document ids stored in index.
func (f *Fake) IDs(index string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.Docs[index]))
	for id := range f.Docs[index] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Doc decodes the stored document id of index into v.
func (f *Fake) Doc(index, id string, v interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.Docs[index][id]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// NewHit builds a search hit whose _source is the JSON encoding of src.
func NewHit(id string, score float64, src interface{}, highlights ...string) es.Hit {
	b, _ := json.Marshal(src)
	h := es.Hit{ID: id, Score: score, Source: b}
	if len(highlights) > 0 {
		h.Highlight = map[string][]string{"content": highlights}
	}
	return h
}

// Response wraps hits into a search response.
func Response(hits ...es.Hit) *es.SearchResponse {
	var r es.SearchResponse
	r.Hits.Hits = hits
	r.Hits.Total.Value = len(hits)
	return &r
}

func staleFilter(query map[string]interface{}) (string, int, bool) {
	b, ok := query["bool"].(map[string]interface{})
	if !ok {
		return "", 0, false
	}
	filters, ok := b["filter"].([]map[string]interface{})
	if !ok {
		return "", 0, false
	}
	var docID string
	minChunk := -1
	for _, clause := range filters {
		if term, ok := clause["term"].(map[string]interface{}); ok {
			if v, ok := term["meta.doc_id"].(string); ok {
				docID = v
			}
		}
		if rng, ok := clause["range"].(map[string]interface{}); ok {
			if r, ok := rng["meta.chunk_id"].(map[string]interface{}); ok {
				if v, ok := r["gte"].(int); ok {
					minChunk = v
				}
			}
		}
	}
	return docID, minChunk, docID != "" && minChunk >= 0
}
