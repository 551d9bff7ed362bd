package core

import "testing"

func TestApplyInlineFormat(t *testing.T) {
	tests := []struct {
		name string
		text string
		sel  Selection
		kind FormatKind
		want string
	}{
		{name: "bold", text: "make this bold", sel: Selection{5, 9}, kind: FormatBold, want: "make **this** bold"},
		{name: "italic", text: "word", sel: Selection{0, 4}, kind: FormatItalic, want: "_word_"},
		{name: "inline code", text: "run ls now", sel: Selection{4, 6}, kind: FormatInlineCode, want: "run `ls` now"},
		{name: "code block", text: "x := 1", sel: Selection{0, 6}, kind: FormatCodeBlock, want: "```\nx := 1\n```"},
		{name: "list item", text: "first", sel: Selection{0, 5}, kind: FormatListItem, want: "- first"},
		{name: "numbered", text: "first", sel: Selection{0, 5}, kind: FormatNumbered, want: "1. first"},
		{name: "link", text: "docs", sel: Selection{0, 4}, kind: FormatLink, want: "[docs](url)"},
		{name: "caret bold", text: "ab", sel: Selection{1, 1}, kind: FormatBold, want: "a****b"},
		{name: "out of range", text: "ab", sel: Selection{0, 5}, kind: FormatBold, want: "ab"},
		{name: "inverted range", text: "ab", sel: Selection{2, 1}, kind: FormatBold, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyInlineFormat(tt.text, tt.sel, tt.kind)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestApplyInlineFormatReappliedStacks(t *testing.T) {
	text := ApplyInlineFormat("hot", Selection{0, 3}, FormatBold)
	if text != "**hot**" {
		t.Fatalf("expected **hot**, got %q", text)
	}
	// Re-applying to the wrapped range stacks rather than unwrapping.
	text = ApplyInlineFormat(text, Selection{0, len(text)}, FormatBold)
	if text != "****hot****" {
		t.Fatalf("expected ****hot****, got %q", text)
	}
}
