package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRegex = regexp.MustCompile("```(?:json)?\\s*|\\s*```")

// CleanModelOutput strips accidental markdown fences from raw model text.
func CleanModelOutput(raw string) string {
	return strings.TrimSpace(fenceRegex.ReplaceAllString(raw, ""))
}

type extractionEnvelope struct {
	Tasks []ProposedTask `json:"tasks"`
}

// ParseExtraction decodes and validates an extraction response.
// Returns *ParseError for malformed or invalid output.
func ParseExtraction(raw string) ([]ProposedTask, error) {
	cleaned := CleanModelOutput(raw)

	var envelope extractionEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, &ParseError{Msg: "invalid JSON: " + err.Error(), Raw: raw}
	}

	for i, task := range envelope.Tasks {
		if task.TaskKey == "" {
			return nil, &ParseError{Msg: "task missing task_key", Raw: raw}
		}
		if task.Title == "" {
			return nil, &ParseError{Msg: "task " + task.TaskKey + " missing title", Raw: raw}
		}
		switch task.Category {
		case "reply", "appointment", "action", "info", "ignored":
		default:
			return nil, &ParseError{Msg: "task " + task.TaskKey + " has invalid category " + task.Category, Raw: raw}
		}
		switch task.Priority {
		case "high", "medium", "low":
		default:
			return nil, &ParseError{Msg: "task " + task.TaskKey + " has invalid priority " + task.Priority, Raw: raw}
		}
		if envelope.Tasks[i].NotifyAt == nil {
			envelope.Tasks[i].NotifyAt = []string{}
		}
	}

	return envelope.Tasks, nil
}

type judgementEnvelope struct {
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason"`
}

// ParseJudgement decodes a completion-judge response.
// Returns *ParseError for malformed output.
func ParseJudgement(raw string) (bool, error) {
	cleaned := CleanModelOutput(raw)

	var envelope judgementEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return false, &ParseError{Msg: "invalid JSON: " + err.Error(), Raw: raw}
	}
	return envelope.Resolved, nil
}
