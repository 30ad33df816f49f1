package llm

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", Temperature: 0.7})
}

func collect(seq func(func(string, error) bool)) ([]string, error) {
	var out []string
	for fragment, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, fragment)
	}
	return out, nil
}

func TestGenerate_Batch(t *testing.T) {
	requests := make(chan generateRequest, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests <- req
		_, _ = io.WriteString(w, `{"model":"test-model","response":"Paris is the capital.","done":true}`)
	})

	fragments, err := collect(client.Generate(context.Background(), "What is the capital?", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is the capital."}, fragments)
	got := <-requests
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "What is the capital?", got.Prompt)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.7, got.Options.Temperature, 1e-9)
}

func TestGenerate_BatchMissingResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"done":true}`)
	})

	fragments, err := collect(client.Generate(context.Background(), "q", false))
	require.NoError(t, err)
	assert.Equal(t, []string{noResponse}, fragments)
}

func TestGenerate_StreamSkipsMalformedLines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		_, _ = io.WriteString(w, "{\"response\":\"Par\",\"done\":false}\n"+
			"{\"response\":\"is\",\"done\":false}\n"+
			"not json\n"+
			"\n"+
			"{\"response\":\".\",\"done\":true}\n"+
			"{\"response\":\"ignored\",\"done\":false}\n")
	})

	fragments, err := collect(client.Generate(context.Background(), "q", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"Par", "is", "."}, fragments)
}

func TestGenerate_StreamSkipsEmptyFragments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"response\":\"Hello\",\"done\":false}\n"+
			"{\"response\":\"\",\"done\":false}\n"+
			"{\"response\":\" world\",\"done\":false}\n"+
			"{\"response\":\"\",\"done\":true,\"total_duration\":12345}\n")
	})

	fragments, err := collect(client.Generate(context.Background(), "q", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, fragments)
}

func TestGenerate_StreamEndsAtEOFWithoutDone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"response\":\"a\"}\n{\"response\":\"b\"}")
	})

	fragments, err := collect(client.Generate(context.Background(), "q", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fragments)
}

func TestGenerate_StreamEarlyBreak(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"response\":\"a\"}\n{\"response\":\"b\"}\n{\"response\":\"c\"}\n")
	})

	var got []string
	for fragment, err := range client.Generate(context.Background(), "q", true) {
		require.NoError(t, err)
		got = append(got, fragment)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestGenerate_Non200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model 'test-model' not found"}`)
	})

	for _, stream := range []bool{false, true} {
		_, err := collect(client.Generate(context.Background(), "q", stream))
		assert.ErrorIs(t, err, model.ErrGeneration)
		assert.Contains(t, err.Error(), "not found")
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(config.LLMConfig{BaseURL: url, Model: "m"})

	_, err := collect(client.Generate(context.Background(), "q", false))
	assert.ErrorIs(t, err, model.ErrGeneration)
}

func TestGenerate_BatchMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	})

	_, err := collect(client.Generate(context.Background(), "q", false))
	assert.ErrorIs(t, err, model.ErrGeneration)
}
