package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

type elicitorImpl struct {
	runner compose.Runnable[map[string]any, elicitorLLMOutput]
}

type elicitorLLMOutput struct {
	Task     string `json:"task"`
	Response struct {
		Message string `json:"message,omitempty"`
		Domain  string `json:"domain,omitempty"`
		Level   string `json:"level,omitempty"`
	} `json:"response"`
}

func newElicitor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*elicitorImpl, error) {
	runner, err := compileStructuredLLMGraph[elicitorLLMOutput](ctx, chatModel, systemPrompt, "elicitor.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile elicitor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &elicitorImpl{runner: runner}, nil
}

func (e *elicitorImpl) Elicit(ctx context.Context, req contractx.ElicitRequest) (contractx.BackgroundResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return contractx.BackgroundResult{}, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"query":   req.Query,
		"history": summarizeHistory(req.History),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.BackgroundResult{}, fmt.Errorf("%w: marshal elicitor payload: %v", contractx.ErrValidation, err)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.BackgroundResult{}, fmt.Errorf("%w: elicitor invoke: %v", contractx.ErrModelInvoke, err)
	}

	return ValidateBackgroundOutput(out)
}

// ValidateBackgroundOutput checks the discriminated union returned by the
// elicitation model. Unknown tags and incomplete variants are schema
// violations, never best-effort coercions.
func ValidateBackgroundOutput(out elicitorLLMOutput) (contractx.BackgroundResult, error) {
	switch contractx.BackgroundResultKind(strings.TrimSpace(out.Task)) {
	case contractx.BackgroundAsk:
		question := strings.TrimSpace(out.Response.Message)
		if question == "" {
			return contractx.BackgroundResult{}, fmt.Errorf("%w: ask-background without a question", contractx.ErrSchemaViolation)
		}
		return contractx.BackgroundResult{
			Kind:     contractx.BackgroundAsk,
			Question: question,
		}, nil

	case contractx.BackgroundFact:
		domain := strings.TrimSpace(out.Response.Domain)
		if domain == "" {
			return contractx.BackgroundResult{}, fmt.Errorf("%w: answer-background without a domain", contractx.ErrSchemaViolation)
		}
		level := contractx.Level(strings.ToLower(strings.TrimSpace(out.Response.Level)))
		if !level.Valid() {
			return contractx.BackgroundResult{}, fmt.Errorf("%w: invalid level=%q", contractx.ErrSchemaViolation, out.Response.Level)
		}
		return contractx.BackgroundResult{
			Kind: contractx.BackgroundFact,
			Background: contractx.Background{
				Domain: domain,
				Level:  level,
			},
		}, nil

	default:
		return contractx.BackgroundResult{}, fmt.Errorf("%w: unknown task=%q", contractx.ErrSchemaViolation, out.Task)
	}
}
