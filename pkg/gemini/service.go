package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"taskmind-backend/pkg/ai"
)

const modelName = "gemini-2.5-flash"

// GeminiService implements ai.AssistantService against the Generative
// Language REST API.
type GeminiService struct {
	ApiKey string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{ApiKey: apiKey}
}

func (g *GeminiService) Model() string {
	return modelName
}

// ExtractTasks runs the task-extraction prompt and parses the proposals.
func (g *GeminiService) ExtractTasks(ctx context.Context, prompt string) (*ai.ExtractionResult, error) {
	raw, err := g.generate(ctx, ai.ExtractionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	tasks, err := ai.ParseExtraction(raw)
	if err != nil {
		return nil, err
	}

	return &ai.ExtractionResult{Tasks: tasks, RawText: raw, Model: modelName}, nil
}

// JudgeResolved runs the completion-check prompt. Malformed output is
// reported as a *ParseError; callers treat any error as "not resolved".
func (g *GeminiService) JudgeResolved(ctx context.Context, prompt string) (bool, error) {
	raw, err := g.generate(ctx, ai.JudgeSystemPrompt, prompt)
	if err != nil {
		return false, err
	}
	return ai.ParseJudgement(raw)
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (g *GeminiService) generate(ctx context.Context, system, prompt string) (string, error) {
	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		modelName, g.ApiKey,
	)

	payload := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]string{{"text": system}},
		},
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
