// Package llm provides a client for a locally hosted Ollama text-generation server.
package llm

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Generate submits prompt and returns the response fragments as a lazy sequence.
	// In batch mode (stream=false) the sequence holds the complete response as a single
	// fragment. Breaking out of the loop cancels the upstream request.
	Generate(ctx context.Context, prompt string, stream bool) iter.Seq2[string, error]
}

type ollamaClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new Ollama client.
func NewClient(cfg config.LLMConfig) Client {
	return &ollamaClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateResponse is both the batch response body and one line of the stream.
type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

const noResponse = "No response generated"

func (c *ollamaClient) Generate(ctx context.Context, prompt string, stream bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		resp, err := c.post(ctx, prompt, stream)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		if !stream {
			var out generateResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				yield("", fmt.Errorf("%w: failed to decode generate response: %v", model.ErrGeneration, err))
				return
			}
			if out.Response == nil {
				yield(noResponse, nil)
				return
			}
			yield(*out.Response, nil)
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				var chunk generateResponse
				// malformed lines are skipped
				if jsonErr := json.Unmarshal(line, &chunk); jsonErr == nil {
					// the terminal done line usually carries an empty response
					if chunk.Response != nil && *chunk.Response != "" {
						if !yield(*chunk.Response, nil) {
							return
						}
					}
					if chunk.Done {
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					yield("", fmt.Errorf("%w: failed to read from stream: %v", model.ErrGeneration, err))
				}
				return
			}
		}
	}
}

func (c *ollamaClient) post(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	reqBody := generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  stream,
		Options: generateOptions{Temperature: c.cfg.Temperature},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal generate request: %v", model.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create generate request: %v", model.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call generate api: %v", model.ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: generate api returned non-200 status: %s, body: %s", model.ErrGeneration, resp.Status, string(bodyBytes))
	}
	return resp, nil
}
