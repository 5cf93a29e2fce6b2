package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

// FinalizeTurn shapes the graph output. An unrouted turn legitimately carries
// no reply; a routed turn must have produced exactly one.
func FinalizeTurn(in *TurnState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if in.Routed && reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: stage returned empty message", contractx.ErrValidation)
	}

	return GraphOutput{
		Reply:  reply,
		Routed: in.Routed,
	}, nil
}
