package turnnode

import (
	"errors"
	"strings"
	"time"

	statex "github.com/tzuchiao/tutorgraph/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidThread  = errors.New("thread id is empty")
)

type GraphInput struct {
	ThreadID string
	Text     string
}

type GraphOutput struct {
	Reply  string
	Routed bool
}

// TurnState is the working copy for one graph execution: the thread snapshot
// plus the incoming query and the turn's pending reply. Nothing here is
// persisted until the save node runs.
type TurnState struct {
	ThreadID string
	Query    string
	Now      time.Time

	Thread *statex.ThreadState

	Routed          bool
	BackgroundReady bool
	Reply           string
}

// NewTurn validates the raw input and opens a turn. Empty input never reaches
// the rest of the graph.
func NewTurn(in GraphInput, nowFn func() time.Time) (*TurnState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, ErrInvalidThread
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &TurnState{
		ThreadID: threadID,
		Query:    text,
		Now:      nowFn().UTC(),
	}, nil
}
