package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

var (
	ErrBackgroundSet = errors.New("background already set")
	ErrInvalidThread = errors.New("thread id is empty")
)

// ThreadState is the durable state of one conversation. It is loaded at the
// start of a turn, mutated on a working copy, and saved only when the turn
// reaches its end; a failed turn leaves the stored state untouched.
//
// AwaitingBackground is the explicit "the last assistant message was a
// clarifying question" flag; the next user message is expected to answer it.
type ThreadState struct {
	ThreadID string              `json:"thread_id"`
	Messages []contractx.Message `json:"messages,omitempty"`

	LastIntent         contractx.Intent     `json:"last_intent,omitempty"`
	Background         *contractx.Background `json:"background,omitempty"`
	AwaitingBackground bool                 `json:"awaiting_background,omitempty"`

	CurrentStage contractx.Stage `json:"current_stage,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewThreadState(threadID string, now time.Time) *ThreadState {
	return &ThreadState{
		ThreadID:     threadID,
		CurrentStage: contractx.StageInitial,
		UpdatedAt:    now.UTC(),
	}
}

func (t *ThreadState) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

func (t *ThreadState) AppendUser(content string) {
	t.Messages = append(t.Messages, contractx.Message{Role: contractx.RoleUser, Content: content})
}

func (t *ThreadState) AppendAssistant(content string) {
	t.Messages = append(t.Messages, contractx.Message{Role: contractx.RoleAssistant, Content: content})
}

// ResetIntent clears the routing decision at the start of a turn. Intent is
// re-classified on every message; only background survives unchanged.
func (t *ThreadState) ResetIntent() {
	t.LastIntent = contractx.IntentNone
}

// SetBackground records the elicited fact. Background is write-once per
// thread; a second resolution is a logic error upstream.
func (t *ThreadState) SetBackground(bg contractx.Background) error {
	if t.Background != nil {
		return ErrBackgroundSet
	}
	if strings.TrimSpace(bg.Domain) == "" {
		return fmt.Errorf("%w: background domain is empty", contractx.ErrValidation)
	}
	if !bg.Level.Valid() {
		return fmt.Errorf("%w: background level=%q", contractx.ErrValidation, bg.Level)
	}
	t.Background = &bg
	t.AwaitingBackground = false
	return nil
}

func (t *ThreadState) HasBackground() bool {
	return t != nil && t.Background != nil
}

func (t *ThreadState) Validate() error {
	if strings.TrimSpace(t.ThreadID) == "" {
		return ErrInvalidThread
	}
	if t.AwaitingBackground && t.Background != nil {
		return fmt.Errorf("%w: awaiting background with background set", contractx.ErrValidation)
	}
	if t.Background != nil {
		if strings.TrimSpace(t.Background.Domain) == "" {
			return fmt.Errorf("%w: background domain is empty", contractx.ErrValidation)
		}
		if !t.Background.Level.Valid() {
			return fmt.Errorf("%w: background level=%q", contractx.ErrValidation, t.Background.Level)
		}
	}
	if t.LastIntent != contractx.IntentNone && !t.LastIntent.Valid() {
		return fmt.Errorf("%w: last intent=%q", contractx.ErrValidation, t.LastIntent)
	}
	return nil
}

// Clone returns a deep working copy for one turn.
func (t *ThreadState) Clone() *ThreadState {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Messages = append([]contractx.Message(nil), t.Messages...)
	if t.Background != nil {
		bg := *t.Background
		cp.Background = &bg
	}
	return &cp
}
