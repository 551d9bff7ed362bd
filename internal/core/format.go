package core

// FormatKind selects an entry in the inline marker table.
type FormatKind string

const (
	FormatBold       FormatKind = "bold"
	FormatItalic     FormatKind = "italic"
	FormatInlineCode FormatKind = "code"
	FormatCodeBlock  FormatKind = "codeblock"
	FormatListItem   FormatKind = "list"
	FormatNumbered   FormatKind = "numbered"
	FormatLink       FormatKind = "link"
)

// Selection is a byte range within draft text. Start == End is a caret.
type Selection struct {
	Start int
	End   int
}

// ApplyInlineFormat wraps or prefixes the selection per the marker table.
// Re-applying the same wrap to identical boundaries is accepted to stack;
// unwrapping is not attempted. Returns the text unchanged for an out of
// range selection.
func ApplyInlineFormat(text string, sel Selection, kind FormatKind) string {
	if sel.Start < 0 || sel.End > len(text) || sel.Start > sel.End {
		return text
	}
	selected := text[sel.Start:sel.End]

	var formatted string
	switch kind {
	case FormatBold:
		formatted = "**" + selected + "**"
	case FormatItalic:
		formatted = "_" + selected + "_"
	case FormatInlineCode:
		formatted = "`" + selected + "`"
	case FormatCodeBlock:
		formatted = "```\n" + selected + "\n```"
	case FormatListItem:
		formatted = "- " + selected
	case FormatNumbered:
		formatted = "1. " + selected
	case FormatLink:
		formatted = "[" + selected + "](url)"
	default:
		return text
	}

	return text[:sel.Start] + formatted + text[sel.End:]
}
