package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

// ElicitBackground resolves the student's background. When the thread already
// carries one, the node is a pure pass-through and the elicitation
// collaborator is never called. Otherwise the stage either resolves the fact
// (and tutoring proceeds this turn) or produces a clarifying question that
// becomes the turn's reply; answering it is the next turn's job.
func ElicitBackground(ctx context.Context, in *TurnState, elicitor contractx.Elicitor) (*TurnState, error) {
	if in == nil || in.Thread == nil {
		return nil, fmt.Errorf("%w: turn thread is nil", contractx.ErrValidation)
	}

	if in.Thread.HasBackground() {
		in.BackgroundReady = true
		return in, nil
	}

	in.Thread.CurrentStage = contractx.StageBackground

	res, err := elicitor.Elicit(ctx, contractx.ElicitRequest{
		Query:   in.Query,
		History: in.Thread.Messages,
	})
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case contractx.BackgroundFact:
		if err := in.Thread.SetBackground(res.Background); err != nil {
			return nil, err
		}
		in.BackgroundReady = true
		return in, nil

	case contractx.BackgroundAsk:
		in.Reply = res.Question
		in.Thread.AwaitingBackground = true
		in.Thread.AppendAssistant(res.Question)
		return in, nil

	default:
		return nil, fmt.Errorf("%w: unknown background result kind=%q", contractx.ErrSchemaViolation, res.Kind)
	}
}
