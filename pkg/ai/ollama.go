package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaService implements AssistantService using a local Ollama server
type OllamaService struct {
	baseURL string
	model   string
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{baseURL: baseURL, model: model}
}

func (o *OllamaService) Model() string {
	return o.model
}

func (o *OllamaService) ExtractTasks(ctx context.Context, prompt string) (*ExtractionResult, error) {
	raw, err := o.generate(ctx, ExtractionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	tasks, err := ParseExtraction(raw)
	if err != nil {
		return nil, err
	}

	return &ExtractionResult{Tasks: tasks, RawText: raw, Model: o.model}, nil
}

func (o *OllamaService) JudgeResolved(ctx context.Context, prompt string) (bool, error) {
	raw, err := o.generate(ctx, JudgeSystemPrompt, prompt)
	if err != nil {
		return false, err
	}
	return ParseJudgement(raw)
}

func (o *OllamaService) generate(ctx context.Context, system, prompt string) (string, error) {
	url := o.baseURL + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.model,
		"system": system,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	// Local models can be slow; give them room
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama API error: %s", string(respBody))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Response == "" {
		return "", fmt.Errorf("no response returned from Ollama")
	}
	return result.Response, nil
}
