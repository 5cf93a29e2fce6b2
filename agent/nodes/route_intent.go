package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

// RouteIntent classifies the query. Classification failure is not fatal for
// the graph: the turn ends with no output and the caller reports it; the
// thread itself is left unsaved.
func RouteIntent(ctx context.Context, in *TurnState, router contractx.Router) (*TurnState, error) {
	if in == nil || in.Thread == nil {
		return nil, fmt.Errorf("%w: turn thread is nil", contractx.ErrValidation)
	}

	in.Thread.CurrentStage = contractx.StageRoute

	intent, err := router.Route(ctx, contractx.RouteRequest{
		Query:   in.Query,
		History: in.Thread.Messages,
	})
	if err != nil {
		log.Warn().Err(err).Str("thread_id", in.ThreadID).Msg("intent classification failed")
		in.Routed = false
		return in, nil
	}

	in.Thread.LastIntent = intent
	in.Routed = true
	return in, nil
}
