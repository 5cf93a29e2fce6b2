package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	statex "github.com/tzuchiao/tutorgraph/agent/state"
)

type fakeStore struct {
	loadState *statex.ThreadState
	loadErr   error
	saveErr   error
	saved     []*statex.ThreadState
}

func (f *fakeStore) Load(ctx context.Context, threadID string) (*statex.ThreadState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.loadState == nil {
		return nil, statex.ErrStateNotFound
	}
	return cloneThreadState(f.loadState), nil
}

func (f *fakeStore) Save(ctx context.Context, st *statex.ThreadState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, cloneThreadState(st))
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, threadID string) error {
	return nil
}

type fakeRouter struct {
	intent contractx.Intent
	err    error
	calls  int
}

func (f *fakeRouter) Route(ctx context.Context, req contractx.RouteRequest) (contractx.Intent, error) {
	f.calls++
	if f.err != nil {
		return contractx.IntentNone, f.err
	}
	return f.intent, nil
}

type fakeElicitor struct {
	result contractx.BackgroundResult
	err    error
	calls  int
}

func (f *fakeElicitor) Elicit(ctx context.Context, req contractx.ElicitRequest) (contractx.BackgroundResult, error) {
	f.calls++
	if f.err != nil {
		return contractx.BackgroundResult{}, f.err
	}
	return f.result, nil
}

type fakeTutor struct {
	reply    string
	err      error
	calls    int
	lastReqs []contractx.TutorRequest
}

func (f *fakeTutor) Teach(ctx context.Context, req contractx.TutorRequest) (string, error) {
	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSummarizer struct {
	reply string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req contractx.SummarizeRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeRegistry struct {
	router     contractx.Router
	elicitor   contractx.Elicitor
	tutor      contractx.Tutor
	summarizer contractx.Summarizer
}

func (f *fakeRegistry) Router() contractx.Router         { return f.router }
func (f *fakeRegistry) Elicitor() contractx.Elicitor     { return f.elicitor }
func (f *fakeRegistry) Tutor() contractx.Tutor           { return f.tutor }
func (f *fakeRegistry) Summarizer() contractx.Summarizer { return f.summarizer }

func TestRunTurnInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeStore{}, defaultRegistry())

	_, err := o.RunTurn(context.Background(), "   ", "hello")
	if !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("expected ErrInvalidThread, got %v", err)
	}

	_, err = o.RunTurn(context.Background(), "t1", "    ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestRunTurnLearningAsksBackground(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	router := &fakeRouter{intent: contractx.IntentLearning}
	elicitor := &fakeElicitor{
		result: contractx.BackgroundResult{
			Kind:     contractx.BackgroundAsk,
			Question: "你對日本戰國史的了解程度是高、中、還是低呢？",
		},
	}
	tutor := &fakeTutor{reply: "should not run"}
	registry := &fakeRegistry{
		router:     router,
		elicitor:   elicitor,
		tutor:      tutor,
		summarizer: &fakeSummarizer{},
	}

	o := newTestOrchestrator(t, store, registry)

	reply, err := o.RunTurn(context.Background(), "thread-1", "我想學習日本戰國史")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if reply != elicitor.result.Question {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if elicitor.calls != 1 {
		t.Fatalf("expected one elicit call, got %d", elicitor.calls)
	}
	if tutor.calls != 0 {
		t.Fatalf("tutor must not run before background resolves, got %d calls", tutor.calls)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}

	saved := store.saved[0]
	if !saved.AwaitingBackground {
		t.Fatal("saved thread must be awaiting background")
	}
	if saved.Background != nil {
		t.Fatal("background must stay unset while awaiting the answer")
	}
	if len(saved.Messages) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(saved.Messages))
	}
	if saved.Messages[1].Role != contractx.RoleAssistant || saved.Messages[1].Content != reply {
		t.Fatalf("unexpected assistant message: %+v", saved.Messages[1])
	}
}

func TestRunTurnBackgroundAnswerLeadsToTutor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := statex.NewThreadState("thread-2", now)
	prev.AppendUser("我想學習日本戰國史")
	prev.AppendAssistant("你對日本戰國史的了解程度是高、中、還是低呢？")
	prev.AwaitingBackground = true

	store := &fakeStore{loadState: prev}
	elicitor := &fakeElicitor{
		result: contractx.BackgroundResult{
			Kind: contractx.BackgroundFact,
			Background: contractx.Background{
				Domain: "日本戰國史",
				Level:  contractx.LevelLow,
			},
		},
	}
	tutor := &fakeTutor{reply: "那我們從應仁之亂開始吧"}
	registry := &fakeRegistry{
		router:     &fakeRouter{intent: contractx.IntentLearning},
		elicitor:   elicitor,
		tutor:      tutor,
		summarizer: &fakeSummarizer{},
	}

	o := newTestOrchestrator(t, store, registry)

	reply, err := o.RunTurn(context.Background(), "thread-2", "低")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if reply != tutor.reply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if tutor.calls != 1 {
		t.Fatalf("expected one tutor call, got %d", tutor.calls)
	}
	if got := tutor.lastReqs[0].Background; got.Domain != "日本戰國史" || got.Level != contractx.LevelLow {
		t.Fatalf("unexpected tutor background: %+v", got)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.AwaitingBackground {
		t.Fatal("awaiting flag must clear once background resolves")
	}
	if !saved.HasBackground() || saved.Background.Level != contractx.LevelLow {
		t.Fatalf("unexpected saved background: %+v", saved.Background)
	}
}

func TestRunTurnExistingBackgroundSkipsElicitor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := statex.NewThreadState("thread-3", now)
	bg := contractx.Background{Domain: "日本戰國史", Level: contractx.LevelLow}
	prev.Background = &bg

	store := &fakeStore{loadState: prev}
	elicitor := &fakeElicitor{}
	tutor := &fakeTutor{reply: "織田信長在桶狹間做了什麼？"}
	registry := &fakeRegistry{
		router:     &fakeRouter{intent: contractx.IntentLearning},
		elicitor:   elicitor,
		tutor:      tutor,
		summarizer: &fakeSummarizer{},
	}

	o := newTestOrchestrator(t, store, registry)

	reply, err := o.RunTurn(context.Background(), "thread-3", "然後呢")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if reply != tutor.reply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if elicitor.calls != 0 {
		t.Fatalf("elicitor must not run with background set, got %d calls", elicitor.calls)
	}
	if tutor.calls != 1 {
		t.Fatalf("expected one tutor call, got %d", tutor.calls)
	}
}

func TestRunTurnSummaryIntent(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	elicitor := &fakeElicitor{}
	tutor := &fakeTutor{}
	summarizer := &fakeSummarizer{reply: `{"you_today_learn":"桶狹間之戰"}`}
	registry := &fakeRegistry{
		router:     &fakeRouter{intent: contractx.IntentSummary},
		elicitor:   elicitor,
		tutor:      tutor,
		summarizer: summarizer,
	}

	o := newTestOrchestrator(t, store, registry)

	reply, err := o.RunTurn(context.Background(), "thread-4", "我想總結今日的學習")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if reply != summarizer.reply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected one summarize call, got %d", summarizer.calls)
	}
	if elicitor.calls != 0 || tutor.calls != 0 {
		t.Fatalf("summary turn must not touch elicitor/tutor: %d/%d", elicitor.calls, tutor.calls)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	if store.saved[0].LastIntent != contractx.IntentSummary {
		t.Fatalf("saved intent = %q, want summary", store.saved[0].LastIntent)
	}
}

func TestRunTurnRoutingFailureSkipsPersistence(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	registry := defaultRegistry()
	registry.router = &fakeRouter{err: errors.New("model unavailable")}

	o := newTestOrchestrator(t, store, registry)

	_, err := o.RunTurn(context.Background(), "thread-5", "嗨")
	if !errors.Is(err, ErrNoIntent) {
		t.Fatalf("expected ErrNoIntent, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("failed routing must not persist, got %d saves", len(store.saved))
	}
}

func TestRunTurnStageFailureSkipsPersistence(t *testing.T) {
	t.Parallel()

	stageErr := errors.New("tutor blew up")
	store := &fakeStore{}
	registry := defaultRegistry()
	registry.router = &fakeRouter{intent: contractx.IntentLearning}
	registry.elicitor = &fakeElicitor{
		result: contractx.BackgroundResult{
			Kind:       contractx.BackgroundFact,
			Background: contractx.Background{Domain: "history", Level: contractx.LevelLow},
		},
	}
	registry.tutor = &fakeTutor{err: stageErr}

	o := newTestOrchestrator(t, store, registry)

	_, err := o.RunTurn(context.Background(), "thread-6", "我想學歷史")
	if !errors.Is(err, stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("failed turn must not persist, got %d saves", len(store.saved))
	}
}

func TestRunTurnSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("save failed")
	store := &fakeStore{saveErr: saveErr}
	registry := defaultRegistry()
	registry.router = &fakeRouter{intent: contractx.IntentLearning}
	registry.elicitor = &fakeElicitor{
		result: contractx.BackgroundResult{Kind: contractx.BackgroundAsk, Question: "哪個領域？"},
	}

	o := newTestOrchestrator(t, store, registry)

	_, err := o.RunTurn(context.Background(), "thread-7", "我想學習")
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestSubmitMessageStreamsChunkThenDone(t *testing.T) {
	t.Parallel()

	registry := defaultRegistry()
	registry.router = &fakeRouter{intent: contractx.IntentLearning}
	registry.elicitor = &fakeElicitor{
		result: contractx.BackgroundResult{Kind: contractx.BackgroundAsk, Question: "哪個領域？"},
	}

	o := newTestOrchestrator(t, &fakeStore{}, registry)

	ch, err := o.SubmitMessage(context.Background(), "thread-8", "我想學習")
	if err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	var got []contractx.Fragment
	for frag := range ch {
		got = append(got, frag)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d: %+v", len(got), got)
	}
	if got[0].Kind != contractx.FragmentChunk || got[0].Text != "哪個領域？" {
		t.Fatalf("unexpected first fragment: %+v", got[0])
	}
	if got[1].Kind != contractx.FragmentDone {
		t.Fatalf("unexpected final fragment: %+v", got[1])
	}
}

func TestSubmitMessageFailureEmitsSingleErrorFragment(t *testing.T) {
	t.Parallel()

	registry := defaultRegistry()
	registry.router = &fakeRouter{err: errors.New("model unavailable")}

	o := newTestOrchestrator(t, &fakeStore{}, registry)

	ch, err := o.SubmitMessage(context.Background(), "thread-9", "嗨")
	if err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	var got []contractx.Fragment
	for frag := range ch {
		got = append(got, frag)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d: %+v", len(got), got)
	}
	if got[0].Kind != contractx.FragmentError {
		t.Fatalf("unexpected fragment: %+v", got[0])
	}
}

func TestSubmitMessageInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeStore{}, defaultRegistry())

	if _, err := o.SubmitMessage(context.Background(), "t1", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if _, err := o.SubmitMessage(context.Background(), "  ", "hello"); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("expected ErrInvalidThread, got %v", err)
	}
}

func defaultRegistry() *fakeRegistry {
	return &fakeRegistry{
		router:     &fakeRouter{},
		elicitor:   &fakeElicitor{},
		tutor:      &fakeTutor{},
		summarizer: &fakeSummarizer{},
	}
}

func newTestOrchestrator(t *testing.T, store statex.Store, registry contractx.Registry) *Orchestrator {
	t.Helper()
	o, err := New(store, registry)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func cloneThreadState(in *statex.ThreadState) *statex.ThreadState {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	var out statex.ThreadState
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}
