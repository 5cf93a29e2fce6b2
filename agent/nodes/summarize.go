package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

// Summarize runs the summarization stage. Record retrieval and note export
// happen inside the stage through its tool gateway.
func Summarize(ctx context.Context, in *TurnState, summarizer contractx.Summarizer) (*TurnState, error) {
	if in == nil || in.Thread == nil {
		return nil, fmt.Errorf("%w: turn thread is nil", contractx.ErrValidation)
	}

	in.Thread.CurrentStage = contractx.StageSummary

	reply, err := summarizer.Summarize(ctx, contractx.SummarizeRequest{
		Query:   in.Query,
		History: in.Thread.Messages,
		Now:     in.Now,
	})
	if err != nil {
		return nil, err
	}

	in.Reply = reply
	in.Thread.AppendAssistant(reply)
	return in, nil
}
