// Package moderation implements the stateless text classifier: link
// detection rejects a message outright, denylist matching lets it through
// masked. Term matching runs an Aho-Corasick automaton over a normalized
// view of each word so leet-speak variants still match.
package moderation

import (
	"regexp"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// ReasonNoLinks is surfaced to a sender whose message carried a URL.
const ReasonNoLinks = "no-links"

var (
	schemeURL  = regexp.MustCompile(`(?i)\b(?:https?|ftp|wss?)://\S+`)
	wwwURL     = regexp.MustCompile(`(?i)\bwww\.\S+`)
	bareDomain = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|io|gg|xyz|dev|app|co|me|tv|info|biz)\b`)
)

// Suffixes tolerated after a denylist term so simple inflections still
// count as the same word.
var inflections = []string{"", "s", "es", "ed", "er", "ers", "ing"}

// Result is the outcome of one moderation pass.
type Result struct {
	Allowed    bool
	Reason     string
	MaskedText string
	Bigotry    bool
}

// Moderator is safe for concurrent use once built; it holds no per-call
// state.
type Moderator struct {
	matcher  *goahocorasick.Machine
	maskChar rune
}

// NewModerator builds the automaton from a normalized copy of the denylist.
func NewModerator(terms []string, maskChar rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(terms))
	for _, term := range terms {
		if norm := normalizeRunes([]rune(term)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, maskChar: maskChar}, nil
}

// Moderate runs both passes. Link detection wins: a message with a URL is
// never broadcast and never masked. Denylist matches keep the message
// alive but mask each matched token and set Bigotry so the caller applies
// the ban path.
func (m *Moderator) Moderate(text string) Result {
	if containsLink(text) {
		return Result{Reason: ReasonNoLinks}
	}

	masked, hit := m.mask(text)
	return Result{Allowed: true, MaskedText: masked, Bigotry: hit}
}

func containsLink(text string) bool {
	return schemeURL.MatchString(text) ||
		wwwURL.MatchString(text) ||
		bareDomain.MatchString(text)
}

// mask walks the text token by token. A token matches when a denylist term
// covers it from the start and the remainder is a known inflection; the
// match keeps its first character and masks the rest.
func (m *Moderator) mask(text string) (string, bool) {
	runes := []rune(text)
	hit := false

	start := -1
	for i := 0; i <= len(runes); i++ {
		boundary := i == len(runes) || !isWordRune(runes[i])
		if !boundary {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if end, ok := m.matchToken(runes[start:i]); ok {
				hit = true
				for j := start + 1; j < start+end; j++ {
					runes[j] = m.maskChar
				}
			}
			start = -1
		}
	}
	return string(runes), hit
}

// matchToken reports whether the token is a denylist term, optionally with
// an inflectional suffix. Trailing leet punctuation ("nigger!!") would
// otherwise normalize into the word body, so the token is retried with it
// trimmed; the returned end index covers only the matched part.
func (m *Moderator) matchToken(token []rune) (int, bool) {
	end := len(token)
	for end > 0 {
		if m.isTerm(token[:end]) {
			return end, true
		}
		if !strings.ContainsRune("@$!|€", token[end-1]) {
			break
		}
		end--
	}
	return 0, false
}

func (m *Moderator) isTerm(token []rune) bool {
	norm := normalizeRunes(token)
	if len(norm) == 0 {
		return false
	}
	for _, span := range m.matcher.MultiPatternSearch(norm, false) {
		if span.Pos != 0 {
			continue
		}
		tail := string(norm[len(span.Word):])
		for _, suffix := range inflections {
			if tail == suffix {
				return true
			}
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		strings.ContainsRune("@$!|€", r)
}

// normalizeRunes lowercases, maps leet-speak characters back to letters,
// and strips everything else.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if !unicode.IsLetter(clean) && !unicode.IsDigit(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
