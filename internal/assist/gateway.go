package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/audit"
	"github.com/hollis/reportline/internal/ratelimit"
)

const (
	MinInputChars = 10
	MaxInputChars = 5000

	degradedPreviewChars = 100
)

var (
	ErrInputTooShort       = errors.New("input is too short to assist with")
	ErrInputTooLong        = errors.New("input exceeds the maximum length")
	ErrUpstreamUnavailable = errors.New("assistance service is unavailable")
)

// RateLimitedError reports a denied invocation and when the window opens.
type RateLimitedError struct {
	RetryAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAt.UTC().Format(time.RFC3339))
}

// Completer is the upstream language model boundary. Implementations return
// the completion text and the total tokens consumed.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, input string) (string, int, error)
}

// Gateway validates, rate-limits, and forwards writing-assistance requests.
// With no completer configured it degrades to an echo preview rather than
// failing, so the submission flow never depends on the upstream.
type Gateway struct {
	completer Completer
	limiter   *ratelimit.Limiter
	ledger    *audit.Ledger
	logger    *slog.Logger
}

func NewGateway(completer Completer, limiter *ratelimit.Limiter, ledger *audit.Ledger, logger *slog.Logger) *Gateway {
	return &Gateway{
		completer: completer,
		limiter:   limiter,
		ledger:    ledger,
		logger:    logger,
	}
}

// Request is one assistance invocation. Identity keys the rate limit and is
// typically tenant plus caller.
type Request struct {
	TenantID uuid.UUID
	UserID   *uuid.UUID
	ReportID *uuid.UUID
	TaskType string
	Input    string
	Identity string
}

// Response carries the assisted text. ServiceActive is false on the degraded
// path so clients can label the output accordingly.
type Response struct {
	TaskType      string `json:"task_type"`
	TaskLabel     string `json:"task_label"`
	Output        string `json:"output"`
	ServiceActive bool   `json:"service_active"`
	InputLength   int    `json:"input_length"`
	OutputLength  int    `json:"output_length"`
	TokensUsed    int    `json:"tokens_used,omitempty"`
}

// Assist runs one task. Checks run in a fixed order so a request with
// several problems is reported consistently: task name, then the degraded
// echo, then input bounds, then the rate limit. Only invocations that pass
// all checks count against the window or the usage ledger.
func (g *Gateway) Assist(ctx context.Context, req Request) (*Response, error) {
	task, err := Lookup(req.TaskType)
	if err != nil {
		return nil, err
	}

	input := strings.TrimSpace(req.Input)

	// Without a completer the gateway answers every recognized task with an
	// echo preview. The request never reaches the bounds or the limiter, so
	// the degraded mode cannot reject or throttle a reporter.
	if g.completer == nil {
		out := preview(input)
		return &Response{
			TaskType:      task.Type,
			TaskLabel:     task.Label,
			Output:        out,
			ServiceActive: false,
			InputLength:   utf8.RuneCountInString(input),
			OutputLength:  utf8.RuneCountInString(out),
		}, nil
	}

	length := utf8.RuneCountInString(input)
	if length < MinInputChars {
		return nil, ErrInputTooShort
	}
	if length > MaxInputChars {
		return nil, ErrInputTooLong
	}

	if g.limiter != nil {
		allowed, _, reset := g.limiter.Allow(req.Identity)
		if !allowed {
			return nil, &RateLimitedError{RetryAt: reset}
		}
	}

	output, tokens, err := g.completer.Complete(ctx, task.SystemPrompt, input)

	if g.ledger != nil {
		_ = g.ledger.RecordUsage(ctx, audit.Usage{
			TenantID:   req.TenantID,
			ReportID:   req.ReportID,
			UserID:     req.UserID,
			TaskType:   task.Type,
			InputText:  input,
			OutputText: output,
			TokensUsed: tokens,
		})
	}

	if err != nil {
		g.logger.Error("upstream completion failed", "task", task.Type, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return &Response{
		TaskType:      task.Type,
		TaskLabel:     task.Label,
		Output:        output,
		ServiceActive: true,
		InputLength:   length,
		OutputLength:  utf8.RuneCountInString(output),
		TokensUsed:    tokens,
	}, nil
}

// preview returns the leading portion of the input for the degraded path.
func preview(input string) string {
	runes := []rune(input)
	if len(runes) <= degradedPreviewChars {
		return input
	}
	return string(runes[:degradedPreviewChars]) + "..."
}
