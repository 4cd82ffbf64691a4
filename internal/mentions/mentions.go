// Package mentions implements @mention detection, completion and
// substitution for stage comments. Everything here is a pure text
// transformation; callers supply the user list and the caret position.
package mentions

import (
	"strings"
	"unicode"

	"bizdesk/internal/models"
)

// MaxSuggestions caps the candidate list offered for an active query.
const MaxSuggestions = 5

// ActiveQuery reports whether the caret sits inside an active mention
// token. It scans backward from the caret for the nearest '@'; the
// substring between the '@' and the caret is the query unless it contains
// whitespace (a space or newline closes the token).
func ActiveQuery(text string, caret int) (query string, start int, ok bool) {
	if caret < 0 {
		caret = 0
	}
	if caret > len(text) {
		caret = len(text)
	}
	before := text[:caret]
	at := strings.LastIndex(before, "@")
	if at == -1 {
		return "", 0, false
	}
	candidate := before[at+1:]
	for _, r := range candidate {
		if unicode.IsSpace(r) {
			return "", 0, false
		}
	}
	return strings.ToLower(candidate), at, true
}

// Suggest returns up to MaxSuggestions active users whose name or email
// contains the query as a case-insensitive substring.
func Suggest(users []*models.User, query string) []*models.User {
	query = strings.ToLower(query)
	var out []*models.User
	for _, u := range users {
		if u == nil || u.Status != models.UserActive {
			continue
		}
		name := strings.ToLower(u.Name)
		email := strings.ToLower(u.Email)
		if strings.Contains(name, query) || strings.Contains(email, query) {
			out = append(out, u)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out
}

// Insert replaces the span [start, caret) with "@<display> " and returns
// the new text plus the caret position immediately after the inserted
// space.
func Insert(text string, caret, start int, display string) (string, int) {
	if caret < 0 {
		caret = 0
	}
	if caret > len(text) {
		caret = len(text)
	}
	if start < 0 || start > caret {
		return text, caret
	}
	inserted := "@" + display + " "
	newText := text[:start] + inserted + text[caret:]
	return newText, start + len(inserted)
}

// Extract resolves @Name / @email tokens in a finished comment against the
// directory. A token runs from an '@' to the next whitespace; matching is
// case-insensitive on the full display name or email. Each user is
// reported once.
func Extract(text string, users []*models.User) []*models.User {
	seen := map[string]bool{}
	var out []*models.User
	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		rest := text[i+1:]
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end == -1 {
			end = len(rest)
		}
		// имя может содержать пробел: пробуем и "слово", и "два слова"
		for _, token := range candidateTokens(rest) {
			u := matchUser(users, token)
			if u != nil && !seen[u.ID] {
				seen[u.ID] = true
				out = append(out, u)
				break
			}
		}
		i += end
	}
	return out
}

// candidateTokens returns prefixes of rest cut at whitespace boundaries,
// longest first, so "Jane Doe says hi" yields "Jane Doe" then "Jane".
func candidateTokens(rest string) []string {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	var tokens []string
	if len(fields) > 1 {
		tokens = append(tokens, fields[0]+" "+strings.TrimRight(fields[1], ".,;:!?"))
	}
	tokens = append(tokens, strings.TrimRight(fields[0], ".,;:!?"))
	return tokens
}

func matchUser(users []*models.User, token string) *models.User {
	if token == "" {
		return nil
	}
	for _, u := range users {
		if u == nil || u.Status != models.UserActive {
			continue
		}
		if strings.EqualFold(u.Name, token) || strings.EqualFold(u.Email, token) {
			return u
		}
	}
	return nil
}
