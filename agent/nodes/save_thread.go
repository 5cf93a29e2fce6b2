package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	statex "github.com/tzuchiao/tutorgraph/agent/state"
)

// SaveThread persists the mutated snapshot. It is the only writer in the
// graph; every failure path exits before reaching it, so a failed turn leaves
// the stored thread byte-identical.
func SaveThread(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil || in.Thread == nil {
		return nil, fmt.Errorf("%w: turn thread is nil", contractx.ErrValidation)
	}

	in.Thread.Touch(in.Now)
	if err := in.Thread.Validate(); err != nil {
		return nil, fmt.Errorf("thread validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Thread); err != nil {
		return nil, err
	}

	return in, nil
}
