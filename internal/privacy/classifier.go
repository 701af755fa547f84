// Package privacy classifies text for PII risk without ever retaining or
// exposing the text itself. Classification output is safe to persist in
// audit entries.
package privacy

import (
	"regexp"
)

// RiskLevel grades how sensitive a piece of text is.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Category names a kind of PII detected in text. Categories are closed enum
// values; they never carry matched text.
type Category string

const (
	CategoryEmail        Category = "EMAIL"
	CategoryPhone        Category = "PHONE"
	CategoryGovernmentID Category = "GOVERNMENT_ID"
	CategoryAddress      Category = "STREET_ADDRESS"
	CategoryCoordinates  Category = "COORDINATES"

	// Minor-specific self-disclosure categories. Any hit forces CRITICAL.
	CategoryMinorName   Category = "MINOR_NAME"
	CategoryMinorAge    Category = "MINOR_AGE"
	CategoryMinorSchool Category = "MINOR_SCHOOL"
	CategoryMinorHome   Category = "MINOR_HOME_LOCATION"
)

// Classification is the only output of the classifier: metadata about the
// text, an irreversible content hash, and the original length. No field ever
// contains a substring of the input.
type Classification struct {
	RiskLevel   RiskLevel  `json:"risk_level"`
	Categories  []Category `json:"categories"`
	ContentHash string     `json:"content_hash"`
	Length      int        `json:"length"`
}

type pattern struct {
	category Category
	weight   int
	re       *regexp.Regexp
}

// generalPatterns detect PII anyone might disclose.
var generalPatterns = []pattern{
	{CategoryEmail, 2, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{CategoryPhone, 2, regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)},
	{CategoryGovernmentID, 3, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9,12}\b`)},
	{CategoryAddress, 3, regexp.MustCompile(`(?i)\b\d+\s+\w+\s+(street|st|avenue|ave|road|rd|lane|ln|drive|dr|boulevard|blvd)\b`)},
	{CategoryCoordinates, 3, regexp.MustCompile(`-?\d{1,3}\.\d{3,}\s*,\s*-?\d{1,3}\.\d{3,}`)},
}

// minorPatterns detect a minor self-reporting identifying details. They are a
// separate set from generalPatterns because their presence overrides numeric
// scoring entirely.
var minorPatterns = []pattern{
	{CategoryMinorName, 0, regexp.MustCompile(`(?i)\b(my name(?:'s| is)|call me|i am called)\s+\S+`)},
	{CategoryMinorAge, 0, regexp.MustCompile(`(?i)\b(i(?: a|')m|i am)\s+(1[0-7]|[1-9])\b|\bage[d]?\s*:?\s*(1[0-7]|[1-9])\b`)},
	{CategoryMinorSchool, 0, regexp.MustCompile(`(?i)\b(my school|i go to [\w\s]{1,40}(school|academy)|in (1st|2nd|3rd|[4-9]th|\d{1,2}th) grade)\b`)},
	{CategoryMinorHome, 0, regexp.MustCompile(`(?i)\b(i live (at|in|on)|my (home|house) is|my address)\b`)},
}

// Hash computes the irreversible content digest embedded in classifications.
// The audit hasher provides the implementation; the classifier stays pure.
type Hash func(text string) string

// Classifier evaluates text against fixed pattern sets. Safe for concurrent
// use; holds no per-call state.
type Classifier struct {
	hash Hash
}

// NewClassifier builds a classifier that digests content with the given hash.
func NewClassifier(hash Hash) *Classifier {
	return &Classifier{hash: hash}
}

// Classify grades the text and returns only derived metadata. The input is
// never stored, logged, or returned.
func (c *Classifier) Classify(text string) Classification {
	result := Classification{
		RiskLevel:   RiskNone,
		ContentHash: c.hash(text),
		Length:      len(text),
	}
	if text == "" {
		return result
	}

	score := 0
	for _, p := range generalPatterns {
		if p.re.MatchString(text) {
			result.Categories = append(result.Categories, p.category)
			score += p.weight
		}
	}

	minorHit := false
	for _, p := range minorPatterns {
		if p.re.MatchString(text) {
			result.Categories = append(result.Categories, p.category)
			minorHit = true
		}
	}

	// A minor disclosing their own details is the worst case regardless of
	// what the numeric score says.
	if minorHit {
		result.RiskLevel = RiskCritical
		return result
	}

	switch {
	case score >= 6:
		result.RiskLevel = RiskHigh
	case score >= 3:
		result.RiskLevel = RiskMedium
	case score >= 1:
		result.RiskLevel = RiskLow
	}
	return result
}
