package stages

import (
	"errors"
	"testing"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want contractx.Intent
	}{
		{"learning", contractx.IntentLearning},
		{"summary", contractx.IntentSummary},
		{"  Learning  ", contractx.IntentLearning},
		{"SUMMARY", contractx.IntentSummary},
	}
	for _, tc := range cases {
		got, err := ParseIntent(tc.raw)
		if err != nil {
			t.Fatalf("ParseIntent(%q) error = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseIntent(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseIntentRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "none", "chat", "learnings"} {
		if _, err := ParseIntent(raw); !errors.Is(err, contractx.ErrSchemaViolation) {
			t.Fatalf("ParseIntent(%q) error = %v, want ErrSchemaViolation", raw, err)
		}
	}
}

func TestSummarizeHistory(t *testing.T) {
	t.Parallel()

	if got := summarizeHistory(nil); got != nil {
		t.Fatalf("summarizeHistory(nil) = %v, want nil", got)
	}

	history := []contractx.Message{
		{Role: contractx.RoleUser, Content: "我想學習日本戰國史"},
		{Role: contractx.RoleAssistant, Content: "你的程度是？"},
	}
	got := summarizeHistory(history)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["role"] != "user" || got[0]["content"] != "我想學習日本戰國史" {
		t.Fatalf("unexpected first entry: %v", got[0])
	}
	if got[1]["role"] != "assistant" {
		t.Fatalf("unexpected second entry: %v", got[1])
	}
}
