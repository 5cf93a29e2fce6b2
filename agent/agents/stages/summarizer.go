package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	toolx "github.com/tzuchiao/tutorgraph/agent/tool"
)

type summarizerImpl struct {
	toolRunner       compose.Runnable[map[string]any, *schema.Message]
	structuredRunner compose.Runnable[map[string]any, summaryLLMOutput]
	gateway          contractx.ToolGateway
	allowedTools     map[string]struct{}
}

type summaryLLMOutput struct {
	Task     string                   `json:"task"`
	Response contractx.SummaryPayload `json:"response"`
}

func newSummarizer(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	gateway contractx.ToolGateway,
) (*summarizerImpl, error) {
	tools := toolx.SummaryToolInfos()
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind summary tools: %v", contractx.ErrModelInvoke, err)
	}

	toolRunner, err := compileChatGraph(ctx, toolModel, systemPrompt, "summarizer.tool_planning_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summary tool planning graph: %v", contractx.ErrModelInvoke, err)
	}

	structuredRunner, err := compileStructuredLLMGraph[summaryLLMOutput](ctx, chatModel, systemPrompt, "summarizer.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summary structured graph: %v", contractx.ErrModelInvoke, err)
	}

	allowed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowed[t.Name] = struct{}{}
	}

	return &summarizerImpl{
		toolRunner:       toolRunner,
		structuredRunner: structuredRunner,
		gateway:          gateway,
		allowedTools:     allowed,
	}, nil
}

// Summarize runs at most one tool round (record retrieval, note export) and
// then asks for the structured summary payload, which is serialized as the
// turn's text. Completed tool side effects are not rolled back on failure.
func (s *summarizerImpl) Summarize(ctx context.Context, req contractx.SummarizeRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	toolResults, err := s.runToolRound(ctx, req, now)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"query":        req.Query,
		"history":      summarizeHistory(req.History),
		"now":          now.UTC().Format(time.RFC3339),
		"tool_results": toolResults,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal summary payload: %v", contractx.ErrValidation, err)
	}

	out, err := s.structuredRunner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return "", fmt.Errorf("%w: summary invoke: %v", contractx.ErrModelInvoke, err)
	}
	if !strings.EqualFold(strings.TrimSpace(out.Task), "summary") {
		return "", fmt.Errorf("%w: unknown task=%q", contractx.ErrSchemaViolation, out.Task)
	}
	if strings.TrimSpace(out.Response.YouTodayLearn) == "" {
		return "", fmt.Errorf("%w: summary is empty", contractx.ErrSchemaViolation)
	}

	rendered, err := json.MarshalIndent(out.Response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: render summary: %v", contractx.ErrValidation, err)
	}
	return string(rendered), nil
}

func (s *summarizerImpl) runToolRound(
	ctx context.Context,
	req contractx.SummarizeRequest,
	now time.Time,
) ([]contractx.ToolResult, error) {
	payload := map[string]any{
		"query":   req.Query,
		"history": summarizeHistory(req.History),
		"now":     now.UTC().Format(time.RFC3339),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal tool planning payload: %v", contractx.ErrValidation, err)
	}

	msg, err := s.toolRunner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return nil, fmt.Errorf("%w: tool planning invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty tool planning response", contractx.ErrSchemaViolation)
	}

	toolReqs, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return nil, err
	}
	if len(toolReqs) == 0 {
		return nil, nil
	}

	for _, tr := range toolReqs {
		if _, ok := s.allowedTools[tr.Tool]; !ok {
			return nil, fmt.Errorf("%w: tool=%s is not allowed for summarize", contractx.ErrSchemaViolation, tr.Tool)
		}
	}

	results, err := s.gateway.Execute(ctx, toolReqs)
	if err != nil {
		return nil, fmt.Errorf("%w: execute summary tools: %v", contractx.ErrModelInvoke, err)
	}
	return results, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		if rawArgs := strings.TrimSpace(call.Function.Arguments); rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{Tool: tool, Args: args})
	}
	return reqs, nil
}
