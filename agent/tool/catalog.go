package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

const (
	ToolLearningRecordsQuery = "learning_records.query"
	ToolNotionCreatePage     = "notion.create_page"
)

// SummaryToolInfos declares the tools the summarize stage may call.
func SummaryToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolLearningRecordsQuery,
			Desc: "取得指定日期區間的學習記錄。當學生想查詢/取得/回顧學習記錄時使用。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"start_date": {Type: schema.String, Desc: "區間起始日期，ISO 格式，省略時為今日"},
				"end_date":   {Type: schema.String, Desc: "區間結束日期，ISO 格式，省略時為今日"},
			}),
		},
		{
			Name: ToolNotionCreatePage,
			Desc: "將學習記錄存成 Notion 筆記頁面，回傳建立結果與連結。當學生想把學習記錄存入 Notion 時使用。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"start_date": {Type: schema.String, Desc: "要匯出的記錄區間起始日期，ISO 格式，省略時為今日"},
				"end_date":   {Type: schema.String, Desc: "要匯出的記錄區間結束日期，ISO 格式，省略時為今日"},
			}),
		},
	}
}

// Gateway executes summary-stage tool requests against the record storage and
// note-export collaborators. Tool-level failures land in ToolResult.Error so
// the model can react; only infrastructure misuse returns a Go error.
type Gateway struct {
	records contractx.RecordSource
	notes   contractx.NotePublisher
	now     func() time.Time
}

func NewGateway(records contractx.RecordSource, notes contractx.NotePublisher) (*Gateway, error) {
	if records == nil {
		return nil, fmt.Errorf("%w: record source is required", contractx.ErrValidation)
	}
	if notes == nil {
		return nil, fmt.Errorf("%w: note publisher is required", contractx.ErrValidation)
	}
	return &Gateway{records: records, notes: notes, now: time.Now}, nil
}

func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		switch req.Tool {
		case ToolLearningRecordsQuery:
			results = append(results, g.queryRecords(ctx, req))
		case ToolNotionCreatePage:
			results = append(results, g.exportRecords(ctx, req))
		default:
			results = append(results, contractx.ToolResult{
				Tool:  req.Tool,
				Error: fmt.Sprintf("tool=%s is unavailable", req.Tool),
			})
		}
	}
	return results, nil
}

func (g *Gateway) queryRecords(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	from, to, err := dateRangeFromArgs(req.Args, g.now())
	if err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}

	records, err := g.records.ListBetween(ctx, from, to)
	if err != nil {
		log.Warn().Err(err).Str("tool", req.Tool).Msg("learning record query failed")
		return contractx.ToolResult{Tool: req.Tool, Error: "取得學習記錄失敗"}
	}
	if len(records) == 0 {
		return contractx.ToolResult{Tool: req.Tool, Result: "沒有找到學習記錄"}
	}
	return contractx.ToolResult{Tool: req.Tool, Result: records}
}

func (g *Gateway) exportRecords(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	from, to, err := dateRangeFromArgs(req.Args, g.now())
	if err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}

	records, err := g.records.ListBetween(ctx, from, to)
	if err != nil {
		log.Warn().Err(err).Str("tool", req.Tool).Msg("learning record query failed")
		return contractx.ToolResult{Tool: req.Tool, Error: "取得學習記錄失敗"}
	}
	if len(records) == 0 {
		return contractx.ToolResult{Tool: req.Tool, Error: "沒有可以匯出的學習記錄"}
	}

	ref, err := g.notes.Publish(ctx, records)
	if err != nil {
		log.Warn().Err(err).Str("tool", req.Tool).Msg("note export failed")
		return contractx.ToolResult{Tool: req.Tool, Error: "建立 Notion 筆記失敗"}
	}
	return contractx.ToolResult{Tool: req.Tool, Result: ref}
}

// dateRangeFromArgs reads optional start_date/end_date ISO args and widens
// them to whole days; both default to today.
func dateRangeFromArgs(args map[string]any, now time.Time) (time.Time, time.Time, error) {
	start, err := dateArg(args, "start_date", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := dateArg(args, "end_date", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date is before start_date")
	}
	return from, to, nil
}

func dateArg(args map[string]any, key string, fallback time.Time) (time.Time, error) {
	raw, ok := args[key]
	if !ok {
		return fallback.UTC(), nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback.UTC(), nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s is not an ISO date: %q", key, s)
}
