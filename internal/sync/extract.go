package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	convdomain "taskmind-backend/internal/conversation/domain"
	convrepo "taskmind-backend/internal/conversation/repository"
	"taskmind-backend/internal/task/engine"
	taskrepo "taskmind-backend/internal/task/repository"
	"taskmind-backend/pkg/ai"
)

const promptBodyTruncate = 2000

// ExtractionPipeline runs a conversation through the LLM extractor and the
// reconciliation engine.
type ExtractionPipeline struct {
	assistant ai.AssistantService
	engine    *engine.Engine
	taskRepo  taskrepo.TaskRepository
	convRepo  convrepo.ConversationRepository
	now       func() time.Time
}

func NewExtractionPipeline(assistant ai.AssistantService, eng *engine.Engine, taskRepo taskrepo.TaskRepository, convRepo convrepo.ConversationRepository) *ExtractionPipeline {
	return &ExtractionPipeline{
		assistant: assistant,
		engine:    eng,
		taskRepo:  taskRepo,
		convRepo:  convRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessConversation extracts tasks from one conversation and reconciles
// them into the task store.
//
// Failure handling splits by cause: a malformed model answer is dropped
// without retry (re-asking a deterministic failure changes nothing), a
// transport failure is retried with backoff and then surfaced. After
// reconciliation, a conversation left with zero tasks is pruned: it was
// ingested but carries nothing actionable.
func (p *ExtractionPipeline) ProcessConversation(ctx context.Context, conversation *convdomain.Conversation) error {
	messages, err := p.convRepo.FindMessages(conversation.ID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	existing, err := p.taskRepo.FindByConversationID(conversation.ID)
	if err != nil {
		return fmt.Errorf("failed to load existing tasks: %w", err)
	}
	existingKeys := make([]string, len(existing))
	for i, task := range existing {
		existingKeys[i] = task.TaskKey
	}

	prompt := BuildExtractionPrompt(conversation, messages, existingKeys, p.now())

	var result *ai.ExtractionResult
	err = retryTransient(ctx, func() error {
		var callErr error
		result, callErr = p.assistant.ExtractTasks(ctx, prompt)
		return callErr
	})
	if err != nil {
		if ai.IsParseError(err) {
			log.Printf("[Extract] dropping conversation %s, model output unusable: %v", conversation.ID, err)
			return nil
		}
		return fmt.Errorf("extraction failed for conversation %s: %w", conversation.ID, err)
	}

	raw := rawOutput(result.RawText)
	if _, err := p.engine.UpsertTasks(conversation.ID, conversation.UserID, conversation.Source, result.Tasks, result.Model, raw); err != nil {
		return fmt.Errorf("reconciliation failed for conversation %s: %w", conversation.ID, err)
	}

	count, err := p.taskRepo.CountByConversationID(conversation.ID)
	if err != nil {
		return nil
	}
	if count == 0 {
		log.Printf("[Extract] pruning conversation %s, no tasks extracted", conversation.ID)
		if err := p.convRepo.DeleteConversation(conversation.ID); err != nil {
			log.Printf("[Extract] could not prune conversation %s: %v", conversation.ID, err)
		}
	}
	return nil
}

// rawOutput stores the verbatim model text as a JSON value for provenance
func rawOutput(text string) datatypes.JSON {
	if json.Valid([]byte(text)) {
		return datatypes.JSON(text)
	}
	encoded, err := json.Marshal(text)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}

// BuildExtractionPrompt renders a conversation for the extractor. Existing
// task keys are included so re-runs reuse stable keys instead of minting new
// ones.
func BuildExtractionPrompt(conversation *convdomain.Conversation, messages []*convdomain.Message, existingKeys []string, now time.Time) string {
	var lines []string
	lines = append(lines, "TODAY: "+now.Format(time.RFC3339))
	lines = append(lines, "SOURCE: "+conversation.Source)
	if conversation.Subject != "" {
		lines = append(lines, "SUBJECT: "+conversation.Subject)
	}
	if len(existingKeys) > 0 {
		lines = append(lines, "EXISTING_TASK_KEYS: "+strings.Join(existingKeys, ", "))
	}
	lines = append(lines, "", "CONVERSATION:")

	for _, msg := range messages {
		direction := "SENDER"
		if msg.IsFromUser {
			direction = "USER"
		}
		sender := msg.SenderHandle
		if sender == "" {
			sender = msg.SenderName
		}
		if sender == "" {
			sender = "unknown"
		}
		body := strings.TrimSpace(msg.BodyText)
		if len(body) > promptBodyTruncate {
			body = body[:promptBodyTruncate] + "...[truncated]"
		}
		lines = append(lines, fmt.Sprintf("[%s] From: %s | Sent: %s",
			direction, sender, msg.SentAt.Format(time.RFC3339)))
		lines = append(lines, body, "")
	}

	return strings.Join(lines, "\n")
}
