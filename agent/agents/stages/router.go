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

type routerImpl struct {
	runner compose.Runnable[map[string]any, routerLLMOutput]
}

type routerLLMOutput struct {
	Intent string `json:"intent"`
}

func newRouter(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*routerImpl, error) {
	runner, err := compileStructuredLLMGraph[routerLLMOutput](ctx, chatModel, systemPrompt, "router.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &routerImpl{runner: runner}, nil
}

func (r *routerImpl) Route(ctx context.Context, req contractx.RouteRequest) (contractx.Intent, error) {
	if strings.TrimSpace(req.Query) == "" {
		return contractx.IntentNone, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"query":   req.Query,
		"history": summarizeHistory(req.History),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.IntentNone, fmt.Errorf("%w: marshal router payload: %v", contractx.ErrValidation, err)
	}

	out, err := r.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.IntentNone, fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err)
	}

	return ParseIntent(out.Intent)
}

// ParseIntent normalizes a raw intent tag against the closed intent set.
func ParseIntent(raw string) (contractx.Intent, error) {
	intent := contractx.Intent(strings.ToLower(strings.TrimSpace(raw)))
	if !intent.Valid() {
		return contractx.IntentNone, fmt.Errorf("%w: unknown intent=%q", contractx.ErrSchemaViolation, raw)
	}
	return intent, nil
}

func summarizeHistory(history []contractx.Message) []map[string]string {
	if len(history) == 0 {
		return nil
	}
	out := make([]map[string]string, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]string{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	return out
}
