// Package analyzer classifies free-text ticket content into language, sentiment, priority and
// category using the static lexicon tables.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/lexicon"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:'\p{L}+)?`)

// ContentAnalysis is the result of classifying a ticket's title and description.
type ContentAnalysis struct {
	Language  string                 `json:"language"`
	Sentiment domain.TicketSentiment `json:"sentiment"`
	// Priority is nil when no keyword matched; callers must keep the existing value then.
	Priority        *domain.TicketPriority `json:"priority,omitempty"`
	Category        domain.TicketCategory  `json:"category"`
	Confidence      float64                `json:"confidence"`
	PriorityChanged bool                   `json:"priority_changed"`
}

// Analyze classifies title and description. It never fails; unusable input behaves as if no
// keyword matched.
func Analyze(title, description string) ContentAnalysis {
	text := strings.ToLower(strings.TrimSpace(title + " " + description))

	result := ContentAnalysis{
		Language:   DetectLanguage(text),
		Sentiment:  DetectSentiment(text),
		Category:   domain.CategoryOther,
		Confidence: 0.5,
	}

	priority := DetectPriority(text)
	if priority != nil {
		result.Confidence += 0.15
	}
	if result.Sentiment == domain.SentimentNegative {
		result.Confidence += 0.1
		if priority == nil || *priority == domain.TicketPriorityLow || *priority == domain.TicketPriorityMedium {
			high := domain.TicketPriorityHigh
			priority = &high
			result.PriorityChanged = true
		}
	}
	result.Priority = priority

	if category, ok := classify(text); ok {
		result.Category = category
		result.Confidence += 0.15
	}
	if result.Confidence > 0.95 {
		result.Confidence = 0.95
	}
	return result
}

// DetectLanguage returns "en" when the text has strictly more English than Spanish function
// words, otherwise "es".
func DetectLanguage(text string) string {
	var en, es int
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := lexicon.EnglishWords[word]; ok {
			en++
		}
		if _, ok := lexicon.SpanishWords[word]; ok {
			es++
		}
	}
	if en > es {
		return lexicon.LangEN
	}
	return lexicon.LangES
}

// DetectSentiment returns NEGATIVE if any negative keyword occurs in text.
func DetectSentiment(text string) domain.TicketSentiment {
	if containsAny(strings.ToLower(text), lexicon.NegativeKeywords) {
		return domain.SentimentNegative
	}
	return domain.SentimentNeutral
}

// DetectPriority returns the first priority bucket with a keyword hit, or nil.
func DetectPriority(text string) *domain.TicketPriority {
	lowered := strings.ToLower(text)
	for _, rule := range lexicon.PriorityRules {
		if containsAny(lowered, rule.Keywords) {
			p := rule.Priority
			return &p
		}
	}
	return nil
}

func classify(lowered string) (domain.TicketCategory, bool) {
	for _, rule := range lexicon.CategoryRules {
		if containsAny(lowered, rule.Keywords) {
			return rule.Category, true
		}
	}
	return "", false
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
