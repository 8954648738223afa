package ai

import (
	"context"
	"fmt"
)

// ProposedTask is a single task proposal extracted by the LLM from a
// conversation. It is never persisted directly; the reconciliation engine
// merges proposals into stored tasks under per-status rules.
type ProposedTask struct {
	TaskKey      string   `json:"task_key"`
	Title        string   `json:"title"`
	Category     string   `json:"category"` // reply | appointment | action | info | ignored
	Priority     string   `json:"priority"` // high | medium | low
	Summary      string   `json:"summary,omitempty"`
	DueAt        *string  `json:"due_at"` // ISO-8601 string; parsed by the engine
	IgnoreReason string   `json:"ignore_reason,omitempty"`
	NotifyAt     []string `json:"notify_at"` // 0-3 ISO-8601 UTC reminder instants
}

// ExtractionResult is the outcome of one extraction call.
type ExtractionResult struct {
	Tasks   []ProposedTask
	RawText string // verbatim model output, stored for provenance
	Model   string
}

// AssistantService is the interface for LLM task extraction and completion
// judging. Implement this interface to add new AI providers.
type AssistantService interface {
	// ExtractTasks proposes tasks for a conversation prompt.
	// A *ParseError means the model answered but the answer was malformed;
	// any other error is a transport failure the caller may retry.
	ExtractTasks(ctx context.Context, prompt string) (*ExtractionResult, error)

	// JudgeResolved decides whether the task described by the prompt has
	// already been completed by the user. Callers must treat any error as
	// "not resolved".
	JudgeResolved(ctx context.Context, prompt string) (bool, error)

	// Model returns the provider's model identifier for provenance.
	Model() string
}

// ParseError indicates the model responded but its output could not be
// decoded or validated. Retrying a deterministic parse failure cannot
// self-heal, so callers must not retry these.
type ParseError struct {
	Msg string
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ai: parse failure: %s", e.Msg)
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
