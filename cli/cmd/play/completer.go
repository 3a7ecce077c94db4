package play

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/blockcss/theme"
	"github.com/ardnew/blockcss/tmpl"
)

// directiveKeywords complete the first word of a {% %} directive.
var directiveKeywords = []string{"if", "elseif", "else", "endif", "and"}

// isWordBoundary reports whether r delimits a completion word. Hyphens are
// not boundaries because token names and field paths may contain them.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '{', '}', '%',
		'*', '/', '=', '!', '&',
		'"', '\'', ',', ':', ';':
		return true
	}

	return false
}

// wordBounds returns the word at the cursor and its byte boundaries within
// input.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain leading up to the word at
// wordStart. For "{{ fields.te" it returns "fields".
func parentPath(input string, wordStart int) string {
	if wordStart == 0 || input[wordStart-1] != '.' {
		return ""
	}

	prefix := input[:wordStart-1]

	pos := len(prefix)
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return prefix[pos:]
}

// enclosingCall returns the resolver whose argument list contains the
// cursor, or "".
func enclosingCall(input string, cursor int) string {
	before := input[:min(cursor, len(input))]

	open := strings.LastIndexByte(before, '(')
	if open < 0 || strings.ContainsRune(before[open:], ')') {
		return ""
	}

	name, _, _ := wordBounds(before[:open], open)
	if _, ok := theme.Resolver(name); !ok {
		return ""
	}

	return name
}

// inDirective reports whether the cursor follows an unclosed "{%".
func inDirective(input string, cursor int) bool {
	before := input[:min(cursor, len(input))]

	return strings.LastIndex(before, "{%") > strings.LastIndex(before, "%}")
}

// candidates returns the completions for the word at the cursor.
func (s *session) candidates(input string, cursor, wordStart int) []string {
	parent := parentPath(input, wordStart)

	switch {
	case parent == tmpl.RootFields:
		return s.definition().Schema().Names()

	case parent != "":
		return nil
	}

	if fn := enclosingCall(input, cursor); fn != "" {
		c, _ := theme.Resolver(fn)

		return append(s.reg.Compiler().Table().Names(c), tmpl.RootFields)
	}

	names := []string{tmpl.RootBlockID, tmpl.RootFields}
	names = append(names, theme.Resolvers()...)
	names = append(names, slices.Sorted(maps.Keys(s.definition().Derived))...)

	if inDirective(input, cursor) {
		names = append(names, directiveKeywords...)
	}

	return names
}

// computeMatches ranks the candidates for the word at the cursor. After a
// dot every member is listed; an empty word elsewhere lists nothing.
func (m model) computeMatches() (matches fuzzy.Matches, wordStart, wordEnd int) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, ws, we := wordBounds(input, cursor)

	var candidates []string

	if m.mode == modeCtrl {
		if word == "" || strings.ContainsRune(input[:ws], ' ') {
			return nil, ws, we
		}

		candidates = ctrlCommands
	} else {
		candidates = m.session.candidates(input, cursor, ws)

		if word == "" {
			if ws == 0 || input[ws-1] != '.' || len(candidates) == 0 {
				return nil, ws, we
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, ws, we
		}
	}

	return fuzzy.Find(word, candidates), ws, we
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within width.
func renderCandidateBar(matches fuzzy.Matches, selected int, tabActive bool, width int) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")

	var (
		b    strings.Builder
		used int
	)

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == selected)

		w := lipgloss.Width(rendered)
		if i > 0 {
			w += len(sep)
		}

		if i > 0 && used+w+lipgloss.Width(ellipsis) > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += w
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched characters
// highlighted. Resolvers get a "()" suffix.
func renderCandidate(match fuzzy.Match, selected bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, i := range match.MatchedIndexes {
		matched[i] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if _, ok := theme.Resolver(match.Str); ok {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// signatureHint describes the resolver call around the cursor.
func (s *session) signatureHint(input string, cursor int) string {
	fn := enclosingCall(input, cursor)
	if fn == "" {
		return ""
	}

	c, _ := theme.Resolver(fn)

	return signatureStyle.Render(fn+"(") + paramStyle.Render("name") +
		signatureStyle.Render(") → "+string(c)+" token value")
}
