package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

type fakeChatService struct {
	fragments []contractx.Fragment
	err       error
	threadIDs []string
	texts     []string
}

func (f *fakeChatService) SubmitMessage(ctx context.Context, threadID string, text string) (<-chan contractx.Fragment, error) {
	f.threadIDs = append(f.threadIDs, threadID)
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan contractx.Fragment, len(f.fragments))
	for _, frag := range f.fragments {
		ch <- frag
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, chat ChatService) *httptest.Server {
	t.Helper()
	s, err := New(chat, Config{Addr: ":0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestChatStreamsFragments(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{
		fragments: []contractx.Fragment{
			{Kind: contractx.FragmentChunk, Text: "你的程度是？"},
			{Kind: contractx.FragmentDone},
		},
	}
	ts := newTestServer(t, chat)

	resp, err := http.Get(ts.URL + "/api/chat?thread_id=thread-1&message=" + url.QueryEscape("我想學習"))
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	if got := resp.Header.Get("X-Thread-Id"); got != "thread-1" {
		t.Fatalf("X-Thread-Id = %q, want thread-1", got)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)

	if !strings.Contains(text, `data: {"chunk":"你的程度是？"}`) {
		t.Fatalf("missing chunk frame:\n%s", text)
	}
	if !strings.Contains(text, "data: [DONE]") {
		t.Fatalf("missing done frame:\n%s", text)
	}

	if len(chat.threadIDs) != 1 || chat.threadIDs[0] != "thread-1" {
		t.Fatalf("unexpected thread ids: %v", chat.threadIDs)
	}
	if chat.texts[0] != "我想學習" {
		t.Fatalf("unexpected message: %q", chat.texts[0])
	}
}

func TestChatErrorFragmentStaysInStream(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{
		fragments: []contractx.Fragment{
			{Kind: contractx.FragmentError, Text: "internal error"},
		},
	}
	ts := newTestServer(t, chat)

	resp, err := http.Get(ts.URL + "/api/chat?thread_id=t&message=hi")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for in-stream error", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `data: {"error":"internal error"}`) {
		t.Fatalf("missing error frame:\n%s", body)
	}
	if strings.Contains(string(body), "[DONE]") {
		t.Fatalf("error stream must not terminate with done:\n%s", body)
	}
}

func TestChatPostBindsJSONBody(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{
		fragments: []contractx.Fragment{
			{Kind: contractx.FragmentChunk, Text: "ok"},
			{Kind: contractx.FragmentDone},
		},
	}
	ts := newTestServer(t, chat)

	resp, err := http.Post(
		ts.URL+"/api/chat",
		"application/json",
		strings.NewReader(`{"thread_id":"thread-9","message":"我想總結今日的學習"}`),
	)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if chat.threadIDs[0] != "thread-9" {
		t.Fatalf("thread id = %q", chat.threadIDs[0])
	}
	if chat.texts[0] != "我想總結今日的學習" {
		t.Fatalf("message = %q", chat.texts[0])
	}
}

func TestChatGeneratesThreadID(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{
		fragments: []contractx.Fragment{{Kind: contractx.FragmentDone}},
	}
	ts := newTestServer(t, chat)

	resp, err := http.Get(ts.URL + "/api/chat?message=hi")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Thread-Id"); got == "" {
		t.Fatal("expected a generated thread id header")
	}
	if len(chat.threadIDs) != 1 || chat.threadIDs[0] == "" {
		t.Fatalf("unexpected thread ids: %v", chat.threadIDs)
	}
}

func TestChatMissingMessage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeChatService{})

	resp, err := http.Get(ts.URL + "/api/chat?thread_id=t&message=")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatSubmitErrorIsBadRequest(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeChatService{err: errors.New("message is empty")})

	resp, err := http.Get(ts.URL + "/api/chat?thread_id=t&message=hi")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeChatService{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"OK"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}
