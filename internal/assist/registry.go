package assist

import (
	"fmt"
	"sort"
	"strings"
)

// Task is one supported writing-assistance operation. The registry is
// closed: callers select a task by name and never supply prompt text.
type Task struct {
	Type         string
	Label        string
	SystemPrompt string
}

var registry = map[string]Task{
	"improve_clarity": {
		Type:  "improve_clarity",
		Label: "Improve clarity",
		SystemPrompt: "You help people write workplace incident reports. Rewrite the " +
			"text to be clearer and easier to follow. Keep every fact exactly as " +
			"stated; do not add, remove, or embellish details. Return only the " +
			"rewritten text.",
	},
	"make_professional": {
		Type:  "make_professional",
		Label: "Make professional",
		SystemPrompt: "You help people write workplace incident reports. Rewrite the " +
			"text in a neutral, professional tone suitable for a formal record. " +
			"Keep every fact exactly as stated. Return only the rewritten text.",
	},
	"fix_grammar": {
		Type:  "fix_grammar",
		Label: "Fix grammar",
		SystemPrompt: "You help people write workplace incident reports. Correct " +
			"spelling, grammar, and punctuation without changing the meaning or " +
			"tone. Keep every fact exactly as stated. Return only the corrected " +
			"text.",
	},
	"create_summary": {
		Type:  "create_summary",
		Label: "Create summary",
		SystemPrompt: "You help people write workplace incident reports. Produce a " +
			"short factual summary of the text in at most three sentences. Do not " +
			"speculate beyond what is stated. Return only the summary.",
	},
}

// UnknownTaskError names the rejected value and the allowed set.
type UnknownTaskError struct {
	Value   string
	Allowed []string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q, allowed: %s", e.Value, strings.Join(e.Allowed, ", "))
}

// Lookup resolves a task by name.
func Lookup(taskType string) (Task, error) {
	task, ok := registry[taskType]
	if !ok {
		return Task{}, &UnknownTaskError{Value: taskType, Allowed: TaskTypes()}
	}
	return task, nil
}

// TaskTypes returns the supported task names, sorted.
func TaskTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
