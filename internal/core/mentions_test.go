package core

import (
	"testing"

	"github.com/seamlabs/weave/internal/types"
)

func TestDetectMentionTrigger(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		query  string
		none   bool
	}{
		{name: "mid word query", text: "hello @jo", cursor: 9, query: "jo"},
		{name: "no space before at", text: "hello@jo", cursor: 8, none: true},
		{name: "space after query", text: "@jo ", cursor: 4, none: true},
		{name: "start of text", text: "@al", cursor: 3, query: "al"},
		{name: "after newline", text: "hi\n@bo", cursor: 6, query: "bo"},
		{name: "bare at", text: "ping @", cursor: 6, query: ""},
		{name: "cursor before at", text: "hey @jo", cursor: 3, none: true},
		{name: "no at", text: "plain text", cursor: 10, none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := DetectMentionTrigger(tt.text, tt.cursor)
			if tt.none {
				if token != nil {
					t.Fatalf("expected no trigger, got query %q", token.Query)
				}
				return
			}
			if token == nil {
				t.Fatalf("expected trigger with query %q, got none", tt.query)
			}
			if token.Query != tt.query {
				t.Fatalf("expected query %q, got %q", tt.query, token.Query)
			}
		})
	}
}

func TestResolveMentionSplicesCanonicalName(t *testing.T) {
	text := "hello @jo, are you there"
	token := DetectMentionTrigger(text, 9)
	if token == nil {
		t.Fatal("expected trigger")
	}

	out, cursor := ResolveMention(text, *token, types.UserSummary{ID: "u1", Name: "Jordan"})
	want := "hello @Jordan , are you there"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
	if cursor != len("hello @Jordan ") {
		t.Fatalf("expected cursor %d, got %d", len("hello @Jordan "), cursor)
	}
}

func TestExtractMentions(t *testing.T) {
	byName := map[string]string{
		"jordan": "u1",
		"ana":    "u2",
	}

	ids := ExtractMentions("hey @Jordan and @ana, not mail@Jordan.io @Jordan", byName)
	if len(ids) != 2 {
		t.Fatalf("expected 2 mentions, got %d (%v)", len(ids), ids)
	}
	assertContains(t, ids, "u1")
	assertContains(t, ids, "u2")
}

func TestCanonicalizeMentions(t *testing.T) {
	canonical := map[string]string{
		"jordan": "Jordan",
		"ana":    "Ana",
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "cases fixed", body: "hey @jordan and @ANA", want: "hey @Jordan and @Ana"},
		{name: "unknown passes through", body: "cc @unknown", want: "cc @unknown"},
		{name: "email untouched", body: "mail@jordan.io", want: "mail@jordan.io"},
		{name: "no mentions", body: "plain text", want: "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalizeMentions(tt.body, canonical); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func assertContains(t *testing.T, values []string, want string) {
	t.Helper()
	for _, v := range values {
		if v == want {
			return
		}
	}
	t.Fatalf("expected %s in %v", want, values)
}
