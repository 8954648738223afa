package ai

import "testing"

func TestParseExtractionValid(t *testing.T) {
	raw := `{"tasks":[{"task_key":"reply-to-anna","title":"Reply to Anna","category":"reply","priority":"high","due_at":"2026-03-12T09:00:00Z","notify_at":["2026-03-12T08:00:00Z"]}]}`

	tasks, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskKey != "reply-to-anna" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestParseExtractionStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"tasks\":[{\"task_key\":\"k\",\"title\":\"x\",\"category\":\"action\",\"priority\":\"low\"}]}\n```"

	tasks, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].NotifyAt == nil || len(tasks[0].NotifyAt) != 0 {
		t.Errorf("missing notify_at must default to empty slice, got %v", tasks[0].NotifyAt)
	}
}

func TestParseExtractionEmptyTasks(t *testing.T) {
	tasks, err := ParseExtraction(`{"tasks":[]}`)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestParseExtractionRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "I could not find any tasks, sorry!"},
		{"missing task_key", `{"tasks":[{"title":"x","category":"action","priority":"low"}]}`},
		{"missing title", `{"tasks":[{"task_key":"k","category":"action","priority":"low"}]}`},
		{"bad category", `{"tasks":[{"task_key":"k","title":"x","category":"errand","priority":"low"}]}`},
		{"bad priority", `{"tasks":[{"task_key":"k","title":"x","category":"action","priority":"urgent"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExtraction(tc.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsParseError(err) {
				t.Errorf("expected ParseError, got %T", err)
			}
		})
	}
}

func TestParseJudgement(t *testing.T) {
	resolved, err := ParseJudgement("```json\n{\"resolved\": true, \"reason\": \"user sent the doc\"}\n```")
	if err != nil {
		t.Fatalf("ParseJudgement: %v", err)
	}
	if !resolved {
		t.Error("expected resolved")
	}

	resolved, err = ParseJudgement(`{"resolved": false}`)
	if err != nil {
		t.Fatalf("ParseJudgement: %v", err)
	}
	if resolved {
		t.Error("expected not resolved")
	}

	if _, err := ParseJudgement("maybe?"); !IsParseError(err) {
		t.Errorf("expected ParseError, got %v", err)
	}
}
