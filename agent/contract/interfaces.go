package contract

import (
	"context"
	"time"
)

type Router interface {
	Route(ctx context.Context, req RouteRequest) (Intent, error)
}

type Elicitor interface {
	Elicit(ctx context.Context, req ElicitRequest) (BackgroundResult, error)
}

type Tutor interface {
	Teach(ctx context.Context, req TutorRequest) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
}

type Registry interface {
	Router() Router
	Elicitor() Elicitor
	Tutor() Tutor
	Summarizer() Summarizer
}

type ToolGateway interface {
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}

// RecordSource reads learning records for the summarize stage.
type RecordSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]LearningRecord, error)
}

// NotePublisher exports learning records to the external note-taking service.
type NotePublisher interface {
	Publish(ctx context.Context, records []LearningRecord) (NoteRef, error)
}
