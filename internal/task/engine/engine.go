package engine

import (
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"taskmind-backend/internal/task/domain"
	"taskmind-backend/pkg/ai"
)

// TaskStore is the slice of the task repository the engine needs
type TaskStore interface {
	FindByConversationID(conversationID string) ([]*domain.Task, error)
	SaveBatch(tasks []*domain.Task) error
}

// Engine reconciles LLM task proposals into persisted tasks.
//
// Upsert rules, dispatched on the matching existing task's status:
//   - no existing row  -> INSERT; status=ignored if category=ignored, else pending
//   - ignored          -> no-op, skip entirely
//   - done / snoozed   -> UPDATE llm_model + raw_llm_output only
//   - otherwise        -> UPDATE title/summary/due_at/notify_at; priority only bumps up
type Engine struct {
	tasks TaskStore
	now   func() time.Time
}

func New(tasks TaskStore) *Engine {
	return &Engine{tasks: tasks, now: func() time.Time { return time.Now().UTC() }}
}

// UpsertTasks merges one extraction run into the stored tasks of a
// conversation. The whole batch commits in a single transaction; each
// proposal is processed independently so one bad field never drops the
// batch. Idempotent: re-running with identical input settles to the same
// stored state.
func (e *Engine) UpsertTasks(conversationID, userID, source string, proposed []ai.ProposedTask, llmModel string, rawOutput datatypes.JSON) ([]*domain.Task, error) {
	existingRows, err := e.tasks.FindByConversationID(conversationID)
	if err != nil {
		return nil, err
	}

	existingByKey := make(map[string]*domain.Task, len(existingRows))
	for _, task := range existingRows {
		existingByKey[task.TaskKey] = task
	}

	now := e.now()
	var results []*domain.Task

	for _, proposal := range proposed {
		existing := existingByKey[proposal.TaskKey]

		switch {
		case existing == nil:
			status := domain.StatusPending
			if proposal.Category == string(domain.CategoryIgnored) {
				status = domain.StatusIgnored
			}
			task := &domain.Task{
				UserID:            userID,
				ConversationID:    conversationID,
				TaskKey:           proposal.TaskKey,
				Source:            source,
				Title:             proposal.Title,
				Category:          domain.Category(proposal.Category),
				Priority:          domain.Priority(proposal.Priority),
				Summary:           proposal.Summary,
				DueAt:             parseDueAt(proposal.DueAt),
				Status:            status,
				IgnoreReason:      proposal.IgnoreReason,
				NotifyAt:          datatypes.NewJSONSlice(copyStrings(proposal.NotifyAt)),
				NotificationsSent: datatypes.NewJSONSlice([]string{}),
				LLMModel:          llmModel,
				RawLLMOutput:      rawOutput,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			results = append(results, task)

		case existing.Status == domain.StatusIgnored:
			// Once ignored, re-classification is never applied
			continue

		case existing.Status == domain.StatusDone || existing.Status == domain.StatusSnoozed:
			// The user has already acted or deferred; record provenance only
			existing.LLMModel = llmModel
			existing.RawLLMOutput = rawOutput
			existing.UpdatedAt = now
			results = append(results, existing)

		default:
			// Pending (and other open states): the LLM may have better
			// info on a re-run, but priority only ever moves up
			existing.Title = proposal.Title
			existing.Summary = proposal.Summary
			existing.DueAt = parseDueAt(proposal.DueAt)
			existing.NotifyAt = datatypes.NewJSONSlice(copyStrings(proposal.NotifyAt))
			existing.NotificationsSent = datatypes.NewJSONSlice(
				intersect(existing.NotificationsSent, proposal.NotifyAt))
			existing.LLMModel = llmModel
			existing.RawLLMOutput = rawOutput
			existing.UpdatedAt = now
			if domain.Priority(proposal.Priority).Rank() > existing.Priority.Rank() {
				existing.Priority = domain.Priority(proposal.Priority)
			}
			results = append(results, existing)
		}
	}

	if len(results) == 0 {
		return nil, nil
	}
	if err := e.tasks.SaveBatch(results); err != nil {
		return nil, err
	}
	return results, nil
}

// dueAtLayouts are tried in order; layouts without a zone are assumed UTC
var dueAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDueAt parses an ISO-8601-ish due date. Unparseable strings degrade
// to nil rather than failing the batch.
func parseDueAt(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}

	value := strings.TrimSpace(*raw)
	for i, layout := range dueAtLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if i > 0 {
			// Naive timestamp, assume UTC
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)
		} else {
			parsed = parsed.UTC()
		}
		return &parsed
	}

	log.Printf("[TaskEngine] could not parse due_at=%q", value)
	return nil
}

func copyStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// intersect keeps the already-sent instants that still appear in the new
// notify_at list, so notifications_sent stays a subset of notify_at.
func intersect(sent []string, notifyAt []string) []string {
	keep := make(map[string]bool, len(notifyAt))
	for _, instant := range notifyAt {
		keep[instant] = true
	}
	out := []string{}
	for _, instant := range sent {
		if keep[instant] {
			out = append(out, instant)
		}
	}
	return out
}
