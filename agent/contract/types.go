package contract

import "time"

type Stage string

const (
	StageInitial    Stage = "initial"
	StageRoute      Stage = "route_intent"
	StageBackground Stage = "elicit_background"
	StageTutor      Stage = "tutor"
	StageSummary    Stage = "summarize"
)

// Intent is the classified purpose of one user message. It is re-decided on
// every turn; the zero value means "not yet resolved".
type Intent string

const (
	IntentNone     Intent = ""
	IntentSummary  Intent = "summary"
	IntentLearning Intent = "learning"
)

func (i Intent) Valid() bool {
	return i == IntentSummary || i == IntentLearning
}

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

func (l Level) Valid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

// Background is the elicited {domain, proficiency} fact that personalizes the
// tutoring stage. Once set on a thread it never changes.
type Background struct {
	Domain string `json:"domain"`
	Level  Level  `json:"level"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type BackgroundResultKind string

const (
	BackgroundAsk  BackgroundResultKind = "ask-background"
	BackgroundFact BackgroundResultKind = "answer-background"
)

// BackgroundResult is the tagged outcome of one elicitation call: either a
// clarifying question to relay to the user, or the resolved background fact.
type BackgroundResult struct {
	Kind       BackgroundResultKind
	Question   string
	Background Background
}

type RouteRequest struct {
	Query   string    `json:"query"`
	History []Message `json:"history,omitempty"`
}

type ElicitRequest struct {
	Query   string    `json:"query"`
	History []Message `json:"history,omitempty"`
}

type TutorRequest struct {
	Query      string     `json:"query"`
	Background Background `json:"background"`
	History    []Message  `json:"history,omitempty"`
}

type SummarizeRequest struct {
	Query   string    `json:"query"`
	History []Message `json:"history,omitempty"`
	Now     time.Time `json:"now"`
}

// SummaryPayload is the structured result of the summarize stage. Field names
// follow the learning-record shape the note exporter expects.
type SummaryPayload struct {
	YouTodayLearn         string `json:"you_today_learn"`
	YourOutput            string `json:"your_output"`
	Feedback              string `json:"feedback"`
	AfterThoughtQuestions string `json:"after_thought_questions"`
	CreatedAt             string `json:"created_at"`
	NoteURL               string `json:"note_url,omitempty"`
}

type LearningRecord struct {
	YouLearned            string    `json:"you_learned"`
	YourOutput            string    `json:"your_output"`
	Feedback              string    `json:"feedback"`
	AfterThoughtQuestions string    `json:"after_thought_questions"`
	Tags                  []string  `json:"tags,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// NoteRef locates a note page created by the export collaborator.
type NoteRef struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type FragmentKind string

const (
	FragmentChunk FragmentKind = "chunk"
	FragmentError FragmentKind = "error"
	FragmentDone  FragmentKind = "done"
)

// Fragment is one unit of the caller-facing stream. A successful turn yields
// exactly one chunk followed by done; a failed turn yields a single error
// fragment and nothing else.
type Fragment struct {
	Kind FragmentKind `json:"kind"`
	Text string       `json:"text,omitempty"`
}
