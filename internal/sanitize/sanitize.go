package sanitize

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Replacement phrases. None contains a digit, which keeps every pass idempotent.
const (
	PhraseStationNumber    = "a station number"
	PhraseStationReference = "a station reference"
	PhraseStructure        = "a structure identifier"
	PhraseSheet            = "a sheet reference"
	PhraseReference        = "a reference code"
	PhraseNumber           = "this number"
)

const (
	contextWindow    = 30
	minIdentifierLen = 4
	minNumericRunLen = 5
)

var (
	stationPattern    = regexp.MustCompile(`\b\d{2,}\+\d+(?:\.\d+)?\b`)
	identifierPattern = regexp.MustCompile(`\b(?:[A-Za-z]+\d+[A-Za-z0-9]*|\d+[A-Za-z]+[A-Za-z0-9]*)\b`)
	numberPattern     = regexp.MustCompile(`\b\d{5,}\b`)

	// Ordinals and units only count after a short digit run ("10th", "12ft").
	unitPattern = regexp.MustCompile(`^\d{1,4}(?:st|nd|rd|th|s|ft|in|mi|mph|cfs)$`)
	// An allow-listed word joined to a short digit run ("CULVERT42", "3bridge").
	wordDigitsPattern = regexp.MustCompile(`^(?:([a-z]+)\d{1,4}|\d{1,4}([a-z]+))$`)
)

// keyword families checked in order against the text around an identifier.
var families = []struct {
	pattern *regexp.Regexp
	phrase  string
}{
	{regexp.MustCompile(`\b(?:station\w*|sta|chainage|milepost)\b`), PhraseStationReference},
	{regexp.MustCompile(`\b(?:bridge|culvert|structure|pipe|wall|inlet|manhole)\w*`), PhraseStructure},
	{regexp.MustCompile(`\b(?:sheet|plan|drawing|page|index)\w*`), PhraseSheet},
}

// DefaultAllowWords are plan-reading words never treated as identifiers.
var DefaultAllowWords = []string{
	"culvert", "station", "sheet", "plan", "profile", "section", "detail",
	"figure", "table", "page", "chapter", "route", "highway", "bridge",
	"drainage", "grade", "elevation", "inlet", "pipe", "lane",
}

// Sanitizer applies the three substitution passes using an allow-list.
type Sanitizer struct {
	allow mapset.Set[string]
}

// New returns a sanitizer whose allow-list is DefaultAllowWords plus extra.
// Matching is case-insensitive.
func New(extra ...string) *Sanitizer {
	allow := mapset.NewSet[string]()
	for _, word := range append(append([]string(nil), DefaultAllowWords...), extra...) {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			allow.Add(word)
		}
	}
	return &Sanitizer{allow: allow}
}

var defaultSanitizer = New()

// Sanitize runs the default sanitizer over text.
func Sanitize(text string) (string, *Map) {
	return defaultSanitizer.Sanitize(text)
}

// Sanitize returns the rewritten text and the substitutions made.
func (s *Sanitizer) Sanitize(text string) (string, *Map) {
	m := NewMap()
	text = applyPass(text, stationPattern, m, func(string, string, int) (string, string, bool) {
		return PhraseStationNumber, ReasonStation, true
	})
	text = applyPass(text, identifierPattern, m, func(current, token string, start int) (string, string, bool) {
		if len(token) < minIdentifierLen || s.allowed(token) {
			return "", "", false
		}
		return identifierPhrase(current, start, start+len(token)), ReasonIdentifier, true
	})
	text = applyPass(text, numberPattern, m, func(_ string, token string, _ int) (string, string, bool) {
		if len(token) < minNumericRunLen {
			return "", "", false
		}
		return PhraseNumber, ReasonNumber, true
	})
	return text, m
}

// allowed exempts allow-listed tokens, an allow-listed word joined to at
// most four digits, and ordinals or units after at most four digits. A
// letter prefix that is not a whole allow-listed word is never exempt.
func (s *Sanitizer) allowed(token string) bool {
	lower := strings.ToLower(token)
	if s.allow.Contains(lower) || unitPattern.MatchString(lower) {
		return true
	}
	m := wordDigitsPattern.FindStringSubmatch(lower)
	if m == nil {
		return false
	}
	return s.allow.Contains(m[1] + m[2])
}

type decideFunc func(current, token string, start int) (phrase, reason string, ok bool)

type replacement struct {
	start, end int
	text       string
}

// applyPass decides replacements front to back, so the first literal
// occurrence owns the map entry, then splices them back to front so earlier
// offsets stay valid.
func applyPass(text string, pattern *regexp.Regexp, m *Map, decide decideFunc) string {
	locs := pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	planned := make([]replacement, 0, len(locs))
	for _, loc := range locs {
		token := text[loc[0]:loc[1]]
		if entry, ok := m.Lookup(token); ok {
			planned = append(planned, replacement{start: loc[0], end: loc[1], text: entry.Replacement})
			continue
		}
		phrase, reason, ok := decide(text, token, loc[0])
		if !ok {
			continue
		}
		entry := m.add(Entry{Original: token, Replacement: phrase, Reason: reason})
		planned = append(planned, replacement{start: loc[0], end: loc[1], text: entry.Replacement})
	}
	for i := len(planned) - 1; i >= 0; i-- {
		r := planned[i]
		text = text[:r.start] + r.text + text[r.end:]
	}
	return text
}

func identifierPhrase(text string, start, end int) string {
	lo := max(start-contextWindow, 0)
	hi := min(end+contextWindow, len(text))
	window := strings.ToLower(text[lo:hi])
	for _, family := range families {
		if family.pattern.MatchString(window) {
			return family.phrase
		}
	}
	return PhraseReference
}
