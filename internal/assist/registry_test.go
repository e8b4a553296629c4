package assist

import (
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"improve_clarity", "make_professional", "fix_grammar", "create_summary"} {
		task, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", name, err)
		}
		if task.Type != name {
			t.Errorf("task type mismatch: %q != %q", task.Type, name)
		}
		if task.SystemPrompt == "" {
			t.Errorf("task %q has no system prompt", name)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("summarize")
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
	if !strings.Contains(err.Error(), "summarize") {
		t.Errorf("error should name the rejected value: %v", err)
	}
	if !strings.Contains(err.Error(), "create_summary") {
		t.Errorf("error should list allowed tasks: %v", err)
	}
}

func TestTaskTypes_Sorted(t *testing.T) {
	types := TaskTypes()
	if len(types) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(types))
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Errorf("task types not sorted: %v", types)
		}
	}
}

func TestPromptsForbidInvention(t *testing.T) {
	// Every prompt instructs the model to stay within the stated facts.
	for name, task := range registry {
		lower := strings.ToLower(task.SystemPrompt)
		if !strings.Contains(lower, "fact") && !strings.Contains(lower, "speculate") {
			t.Errorf("prompt for %s does not constrain the model to stated facts", name)
		}
	}
}
