package core

import (
	"sort"
	"strings"
)

// Base confidence per keyword category
const (
	PrimaryBaseConfidence  = 0.8
	VendorBaseConfidence   = 0.3
	PriorityBaseConfidence = 0.9
	DefaultBaseConfidence  = 0.5
)

// categoryOrder is the fixed scan order of the catalog
var categoryOrder = []Category{
	CategoryPrimaryDE,
	CategoryPrimaryEN,
	CategoryVendor,
	CategoryPriority,
}

var baseConfidence = map[Category]float64{
	CategoryPrimaryDE: PrimaryBaseConfidence,
	CategoryPrimaryEN: PrimaryBaseConfidence,
	CategoryVendor:    VendorBaseConfidence,
	CategoryPriority:  PriorityBaseConfidence,
}

// related terms offered by Suggest
var similarityMap = map[string][]string{
	"stornierung": {"annullierung", "rückgängig", "abbrechen"},
	"rückgabe":    {"zurücksenden", "retoure", "umtausch"},
	"cancel":      {"void", "terminate", "abort"},
	"refund":      {"reimbursement", "payback", "return payment"},
}

// KeywordLists carries the raw keyword lists from configuration
type KeywordLists struct {
	PrimaryDE []string
	PrimaryEN []string
	Vendor    []string
	Priority  []string
}

// DefaultKeywordLists returns the built-in keyword lists
func DefaultKeywordLists() KeywordLists {
	return KeywordLists{
		PrimaryDE: []string{
			"stornierung", "stornieren", "storno",
			"rückgabe", "zurückgeben", "zurücksenden",
			"erstattung", "rückerstattung",
			"bestellung stornieren", "bestellung abbrechen",
			"rücktritt", "widerruf", "kündigung",
			"annullierung", "rückabwicklung",
		},
		PrimaryEN: []string{
			"cancel", "cancellation", "cancelled",
			"refund", "return", "returning",
			"order cancellation", "cancel order",
			"withdrawal", "revocation",
			"void", "annul", "nullify",
		},
		Vendor: []string{
			"amazon", "bestellung", "order",
			"bestellnummer", "order number",
			"artikel", "product", "item",
		},
		Priority: []string{
			"dringend", "urgent", "sofort", "immediately",
			"wichtig", "important", "asap",
		},
	}
}

// KeywordCatalog holds the categorized keyword lists. It is immutable after
// construction and safe for concurrent use.
type KeywordCatalog struct {
	keywords map[Category][]string
}

// NewKeywordCatalog creates a catalog from the given lists. Keywords are
// lowercased, trimmed and deduplicated per category; empty entries are dropped.
func NewKeywordCatalog(lists KeywordLists) *KeywordCatalog {
	return &KeywordCatalog{
		keywords: map[Category][]string{
			CategoryPrimaryDE: normalizeKeywords(lists.PrimaryDE),
			CategoryPrimaryEN: normalizeKeywords(lists.PrimaryEN),
			CategoryVendor:    normalizeKeywords(lists.Vendor),
			CategoryPriority:  normalizeKeywords(lists.Priority),
		},
	}
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// Categories returns the categories in scan order
func (c *KeywordCatalog) Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Keywords returns a copy of the keywords of a category
func (c *KeywordCatalog) Keywords(category Category) []string {
	kws := c.keywords[category]
	out := make([]string, len(kws))
	copy(out, kws)
	return out
}

// BaseConfidence returns the base confidence of a category
func (c *KeywordCatalog) BaseConfidence(category Category) float64 {
	if v, ok := baseConfidence[category]; ok {
		return v
	}
	return DefaultBaseConfidence
}

// Suggest returns related terms for the catalog's core words found in text
func (c *KeywordCatalog) Suggest(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var suggestions []string
	for keyword, similar := range similarityMap {
		if !strings.Contains(lower, keyword) {
			continue
		}
		for _, s := range similar {
			if !seen[s] {
				seen[s] = true
				suggestions = append(suggestions, s)
			}
		}
	}
	sort.Strings(suggestions)
	return suggestions
}
