package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type geminiContentPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type GeminiProvider struct {
	ApiKey   string
	Model    string
	TaskType string
	client   *http.Client
}

func NewGeminiProvider(apiKey, model string) EmbeddingProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{
		ApiKey:   apiKey,
		Model:    model,
		TaskType: "SEMANTIC_SIMILARITY",
		client:   &http.Client{},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.Model
}

func (p *GeminiProvider) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	modelPath := "models/" + p.Model
	batch := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		batch.Requests[i] = geminiEmbedRequest{
			Model:    modelPath,
			Content:  geminiContent{Parts: []geminiContentPart{{Text: t}}},
			TaskType: p.TaskType,
		}
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/%s:batchEmbedContents",
		modelPath,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	var parsed geminiBatchResponse
	if err := json.Unmarshal(resByte, &parsed); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(parsed.Embeddings))
	for i, e := range parsed.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
