package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

type tutorImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func newTutor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*tutorImpl, error) {
	runner, err := compileChatGraph(ctx, chatModel, systemPrompt, "tutor.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile tutor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &tutorImpl{runner: runner}, nil
}

func (t *tutorImpl) Teach(ctx context.Context, req contractx.TutorRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(req.Background.Domain) == "" || !req.Background.Level.Valid() {
		return "", fmt.Errorf("%w: tutor requires a resolved background", contractx.ErrValidation)
	}

	payload := map[string]any{
		"query": req.Query,
		"background": map[string]string{
			"domain": req.Background.Domain,
			"level":  string(req.Background.Level),
		},
		"history": summarizeHistory(req.History),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal tutor payload: %v", contractx.ErrValidation, err)
	}

	msg, err := t.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return "", fmt.Errorf("%w: tutor invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: tutor returned empty message", contractx.ErrSchemaViolation)
	}

	return strings.TrimSpace(msg.Content), nil
}
