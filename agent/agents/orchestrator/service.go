package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	nodex "github.com/tzuchiao/tutorgraph/agent/nodes"
	statex "github.com/tzuchiao/tutorgraph/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidThread  = nodex.ErrInvalidThread
	ErrNoIntent       = contractx.ErrNoIntent
)

var intentSummary = contractx.IntentSummary

// Orchestrator binds the turn graph to a thread store and the stage
// registry. It is the public entry point of the core: one SubmitMessage call
// runs exactly one turn.
type Orchestrator struct {
	store  statex.Store
	stages contractx.Registry

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(store statex.Store, stages contractx.Registry) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("thread state store is required")
	}
	if stages == nil {
		return nil, errors.New("stage registry is required")
	}

	o := &Orchestrator{
		store:  store,
		stages: stages,
		now:    time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// RunTurn executes one turn synchronously and returns its single reply.
func (o *Orchestrator) RunTurn(ctx context.Context, threadID string, text string) (string, error) {
	if _, err := nodex.NewTurn(nodex.GraphInput{ThreadID: threadID, Text: text}, o.now); err != nil {
		return "", err
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ThreadID: threadID,
		Text:     text,
	})
	if err != nil {
		return "", err
	}
	if !out.Routed {
		return "", ErrNoIntent
	}
	return out.Reply, nil
}

// SubmitMessage runs one turn and exposes it as a finite fragment stream:
// one chunk then done on success, a single error fragment on failure. The
// channel is closed when the turn is over; it cannot be restarted. Input is
// validated here, before any graph work happens.
func (o *Orchestrator) SubmitMessage(ctx context.Context, threadID string, text string) (<-chan contractx.Fragment, error) {
	if _, err := nodex.NewTurn(nodex.GraphInput{ThreadID: threadID, Text: text}, o.now); err != nil {
		return nil, err
	}

	ch := make(chan contractx.Fragment, 2)
	go func() {
		defer close(ch)

		reply, err := o.RunTurn(ctx, threadID, text)
		if err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("turn failed")
			ch <- contractx.Fragment{Kind: contractx.FragmentError, Text: "internal error"}
			return
		}

		ch <- contractx.Fragment{Kind: contractx.FragmentChunk, Text: reply}
		ch <- contractx.Fragment{Kind: contractx.FragmentDone}
	}()

	return ch, nil
}
