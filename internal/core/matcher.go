package core

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// contextRadius is the number of characters kept on each side of a match
const contextRadius = 50

// minIdentifierLength is the shortest accepted order/reference number
const minIdentifierLength = 8

// preparedMessage is a sanitized message together with its derived texts
type preparedMessage struct {
	record       MessageRecord
	text         string // lowercase subject + " " + body
	subjectRunes int    // length of the lowercase subject in text
	bodyRunes    int
	senderLower  string
}

type keywordPattern struct {
	keyword  string
	category Category
	re       *regexp.Regexp
}

// vendor relation patterns (subject + body + sender)
var vendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)amazon\.de`),
	regexp.MustCompile(`(?i)amazon\.com`),
	regexp.MustCompile(`(?i)amazon-.*@amazon\.(de|com)`),
	regexp.MustCompile(`(?i)bestellung.*amazon`),
	regexp.MustCompile(`(?i)amazon.*bestellung`),
	regexp.MustCompile(`(?i)order.*amazon`),
	regexp.MustCompile(`(?i)amazon.*order`),
}

// order and reference number patterns; the first group is the identifier
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{3}-\d{7}-\d{7})`),
	regexp.MustCompile(`(?i)bestellnummer[:\s#]*([A-Z0-9-]{10,})`),
	regexp.MustCompile(`(?i)order\s+number[:\s#]*([A-Z0-9-]{10,})`),
	regexp.MustCompile(`(?i)order[\s-]*id[:\s#]*([A-Z0-9-]{10,})`),
	regexp.MustCompile(`(?i)auftragsnummer[:\s#]*([A-Z0-9-]{10,})`),
	regexp.MustCompile(`(?i)\bref(?:erence)?[:\s#]*([A-Z0-9-]{10,})`),
}

// PatternMatcher finds catalog keywords in message text and runs the vendor
// and identifier patterns. All patterns are compiled once at construction.
type PatternMatcher struct {
	scorer   *ConfidenceScorer
	keywords []keywordPattern
}

// NewPatternMatcher compiles a search pattern for every catalog keyword
func NewPatternMatcher(catalog *KeywordCatalog, scorer *ConfidenceScorer) *PatternMatcher {
	m := &PatternMatcher{scorer: scorer}
	for _, category := range catalog.Categories() {
		for _, kw := range catalog.Keywords(category) {
			m.keywords = append(m.keywords, keywordPattern{
				keyword:  kw,
				category: category,
				re:       regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw)),
			})
		}
	}
	return m
}

// FindMatches returns every whole-word keyword occurrence, sorted by
// confidence descending. Equal confidences keep discovery order.
func (m *PatternMatcher) FindMatches(msg *preparedMessage) []KeywordMatch {
	text := msg.text
	runes := []rune(text)

	var matches []KeywordMatch
	for _, kp := range m.keywords {
		offset := 0
		for offset <= len(text) {
			loc := kp.re.FindStringIndex(text[offset:])
			if loc == nil {
				break
			}
			start, end := offset+loc[0], offset+loc[1]
			if end == start {
				break
			}
			if !isWholeWord(text, start, end) {
				// retry one character further so overlapping hits are not lost
				_, size := utf8.DecodeRuneInString(text[start:])
				offset = start + size
				continue
			}

			runeStart := utf8.RuneCountInString(text[:start])
			runeEnd := runeStart + utf8.RuneCountInString(text[start:end])
			ctxStart := max(0, runeStart-contextRadius)
			ctxEnd := min(len(runes), runeEnd+contextRadius)

			matches = append(matches, KeywordMatch{
				Keyword:    kp.keyword,
				Context:    strings.TrimSpace(string(runes[ctxStart:ctxEnd])),
				Position:   runeStart,
				Confidence: m.scorer.MatchConfidence(kp.category, runeStart, msg),
				Category:   kp.category,
			})
			offset = end
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// IsVendorRelated reports whether any vendor pattern matches the message
func (m *PatternMatcher) IsVendorRelated(rec *MessageRecord) bool {
	text := rec.Subject + " " + rec.Body + " " + rec.Sender
	for _, re := range vendorPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractIdentifiers returns the distinct order/reference numbers found in
// text, in order of first appearance
func (m *PatternMatcher) ExtractIdentifiers(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, re := range identifierPatterns {
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			id := sub[1]
			if seen[id] || !isValidIdentifier(id) {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func isValidIdentifier(id string) bool {
	if utf8.RuneCountInString(id) < minIdentifierLength {
		return false
	}
	return strings.IndexFunc(id, unicode.IsDigit) >= 0
}

// isWholeWord checks Unicode word boundaries on both sides of text[start:end]
func isWholeWord(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:])
	last, _ := utf8.DecodeLastRuneInString(text[:end])

	before := false
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		before = isWordRune(r)
	}
	after := false
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		after = isWordRune(r)
	}
	return before != isWordRune(first) && after != isWordRune(last)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
