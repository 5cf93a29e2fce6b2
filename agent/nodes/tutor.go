package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

// Tutor runs the tutoring stage with the resolved background.
func Tutor(ctx context.Context, in *TurnState, tutor contractx.Tutor) (*TurnState, error) {
	if in == nil || in.Thread == nil {
		return nil, fmt.Errorf("%w: turn thread is nil", contractx.ErrValidation)
	}
	if !in.Thread.HasBackground() {
		return nil, fmt.Errorf("%w: tutor requires a resolved background", contractx.ErrValidation)
	}

	in.Thread.CurrentStage = contractx.StageTutor

	reply, err := tutor.Teach(ctx, contractx.TutorRequest{
		Query:      in.Query,
		Background: *in.Thread.Background,
		History:    in.Thread.Messages,
	})
	if err != nil {
		return nil, err
	}

	in.Reply = reply
	in.Thread.AppendAssistant(reply)
	return in, nil
}
