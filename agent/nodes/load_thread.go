package turnnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	statex "github.com/tzuchiao/tutorgraph/agent/state"
)

// LoadThread loads the thread snapshot (or starts a fresh one when the store
// reports not-found, including after TTL expiry), resets the routing decision
// for this turn, and records the incoming user message on the working copy.
func LoadThread(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.ThreadID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		st = statex.NewThreadState(in.ThreadID, in.Now)
	}

	turn := st.Clone()
	turn.ResetIntent()
	turn.AppendUser(in.Query)
	turn.CurrentStage = contractx.StageInitial

	in.Thread = turn
	return in, nil
}
