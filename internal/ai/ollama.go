package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaOptions are the sampling options sent with every generate call.
type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

type OllamaClient struct {
	baseURL    string
	model      string
	options    OllamaOptions
	httpClient *http.Client
}

func NewOllamaClient(baseURL, model string, options OllamaOptions, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		options:    options,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (c *OllamaClient) post(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	bodyBytes, err := json.Marshal(map[string]interface{}{
		"model":   c.model,
		"prompt":  prompt,
		"stream":  stream,
		"options": c.options,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build ollama request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request to %s failed: %w", c.baseURL, err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama response status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	return resp, nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed ollamaGenerateChunk
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse ollama json failed: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}
	return parsed.Response, nil
}

// StreamGenerate consumes the newline-delimited JSON stream of /api/generate.
func (c *OllamaClient) StreamGenerate(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	resp, err := c.post(ctx, prompt, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if err := onChunk(chunk.Response); err != nil {
				return "", err
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan ollama stream failed: %w", err)
	}
	return full.String(), nil
}
