package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seamlabs/weave/internal/types"
)

var mentionRe = regexp.MustCompile(`@([\pL\pN][\pL\pN._-]*)`)

// DetectMentionTrigger reports an in-progress mention at the cursor. A
// trigger is an @ preceded by start-of-text, a space, or a newline, with no
// space between the @ and the cursor. Returns nil when the cursor is not
// inside a mention.
func DetectMentionTrigger(text string, cursorOffset int) *types.MentionToken {
	if cursorOffset < 0 || cursorOffset > len(text) {
		return nil
	}

	at := -1
	for i := cursorOffset; i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
		if r == ' ' || r == '\n' || r == '\t' {
			return nil
		}
		if r == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return nil
	}

	if at > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:at])
		if prev != ' ' && prev != '\n' && prev != '\t' {
			return nil
		}
	}

	return &types.MentionToken{
		StartOffset: at,
		RawText:     text[at:cursorOffset],
		Query:       text[at+1 : cursorOffset],
	}
}

// ResolveMention splices the canonical @DisplayName over the partial query
// the token covers, with a trailing space so typing continues after the
// mention. Returns the updated text and the cursor offset just past the
// splice.
func ResolveMention(text string, token types.MentionToken, user types.UserSummary) (string, int) {
	end := token.StartOffset + len(token.RawText)
	if token.StartOffset < 0 || end > len(text) {
		return text, len(text)
	}
	canonical := "@" + user.Name + " "
	out := text[:token.StartOffset] + canonical + text[end:]
	return out, token.StartOffset + len(canonical)
}

// CanonicalizeMentions rewrites recognized mentions to their canonical
// display-name form, so stored bodies do not depend on how the author
// cased or abbreviated the name. canonical maps lowercased display names
// to the canonical spelling. Unrecognized mentions pass through untouched.
func CanonicalizeMentions(body string, canonical map[string]string) string {
	if len(canonical) == 0 {
		return body
	}
	matches := mentionRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var out strings.Builder
	out.Grow(len(body))
	prev := 0
	for _, match := range matches {
		start := match[0]
		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(body[:start])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		name, ok := canonical[strings.ToLower(body[match[2]:match[3]])]
		if !ok {
			continue
		}
		out.WriteString(body[prev:start])
		out.WriteString("@" + name)
		prev = match[1]
	}
	out.WriteString(body[prev:])
	return out.String()
}

// ExtractMentions returns the user ids mentioned in a message body.
// byName maps lowercased display names to user ids. Mentions embedded in
// words (email addresses and the like) are skipped.
func ExtractMentions(body string, byName map[string]string) []string {
	matches := mentionRe.FindAllStringSubmatchIndex(body, -1)
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(matches))

	for _, match := range matches {
		if len(match) < 4 {
			continue
		}
		start := match[0]
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(body[:start])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		name := strings.ToLower(body[match[2]:match[3]])
		id, ok := byName[name]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
