// Package extract turns free-form user text into typed candidate values for
// the dialogue engine. Deterministic patterns run first; a Gemini-backed
// free-text extractor fills in whatever the patterns could not resolve. The
// engine only ever consults the confidence on each value, never the strategy
// that produced it.
package extract

import (
	"context"
	"time"

	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// Field names a structured value the active flow step expects.
type Field string

const (
	FieldDate         Field = "date"
	FieldDateRange    Field = "date_range"
	FieldTime         Field = "time"
	FieldSlotIndex    Field = "slot_index"
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldConfirmation Field = "confirmation"
)

// Value is one extracted candidate with its confidence signal. Only the
// members relevant to the field kind are populated.
type Value struct {
	Text       string    `json:"text,omitempty"`
	Date       time.Time `json:"date,omitempty"`
	EndDate    time.Time `json:"end_date,omitempty"`
	Hour       int       `json:"hour,omitempty"`
	Minute     int       `json:"minute,omitempty"`
	Index      int       `json:"index,omitempty"`
	Affirmed   bool      `json:"affirmed,omitempty"`
	Confidence float64   `json:"confidence"`
}

// Result maps each resolved field to its best candidate.
type Result map[Field]Value

// Has reports whether the field resolved at or above the given confidence.
func (r Result) Has(f Field, minConfidence float64) bool {
	v, ok := r[f]
	return ok && v.Confidence >= minConfidence
}

// Extractor resolves expected fields from raw text.
type Extractor interface {
	Extract(ctx context.Context, text string, fields []Field) (Result, error)
}

// patternConfidence is assigned to every deterministic match.
const patternConfidence = 0.95

// PatternExtractor resolves fields with deterministic pt-BR patterns only.
type PatternExtractor struct {
	loc *time.Location
	now func() time.Time
}

var _ Extractor = (*PatternExtractor)(nil)

// NewPatternExtractor builds the deterministic layer for the given clinic timezone.
func NewPatternExtractor(loc *time.Location) *PatternExtractor {
	if loc == nil {
		loc = time.UTC
	}
	return &PatternExtractor{loc: loc, now: time.Now}
}

// Extract never fails; fields the patterns cannot resolve are simply absent.
func (p *PatternExtractor) Extract(_ context.Context, text string, fields []Field) (Result, error) {
	now := p.now().In(p.loc)
	result := make(Result)

	for _, field := range fields {
		switch field {
		case FieldDate:
			if d, ok := parseDate(text, now, p.loc); ok {
				result[field] = Value{Date: d, Confidence: patternConfidence}
			}
		case FieldDateRange:
			if start, end, ok := parseDateRange(text, now, p.loc); ok {
				result[field] = Value{Date: start, EndDate: end, Confidence: patternConfidence}
			}
		case FieldTime:
			if hour, minute, ok := parseTimeOfDay(text); ok {
				result[field] = Value{Hour: hour, Minute: minute, Confidence: patternConfidence}
			}
		case FieldSlotIndex:
			if idx, ok := parseOrdinal(text); ok {
				result[field] = Value{Index: idx, Confidence: patternConfidence}
			}
		case FieldEmail:
			if email, ok := parseEmail(text); ok {
				result[field] = Value{Text: email, Confidence: patternConfidence}
			}
		case FieldPhone:
			if phone, ok := parsePhone(text); ok {
				result[field] = Value{Text: phone, Confidence: patternConfidence}
			}
		case FieldName:
			if name, ok := parseName(text); ok {
				result[field] = Value{Text: name, Confidence: patternConfidence}
			}
		case FieldConfirmation:
			if affirmed, ok := parseConfirmation(text); ok {
				result[field] = Value{Affirmed: affirmed, Confidence: patternConfidence}
			}
		}
	}
	return result, nil
}

// Layered runs patterns first and consults the fallback extractor only for
// fields still missing. A fallback failure is not fatal: whatever the
// patterns produced is returned and the error is logged, so the flow machine
// re-prompts instead of crashing.
type Layered struct {
	patterns *PatternExtractor
	fallback Extractor
	timeout  time.Duration
	logger   *logging.Logger
}

var _ Extractor = (*Layered)(nil)

// NewLayered combines the deterministic layer with an optional free-text fallback.
func NewLayered(patterns *PatternExtractor, fallback Extractor, timeout time.Duration, logger *logging.Logger) *Layered {
	if patterns == nil {
		panic("extract: pattern extractor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Layered{patterns: patterns, fallback: fallback, timeout: timeout, logger: logger}
}

func (l *Layered) Extract(ctx context.Context, text string, fields []Field) (Result, error) {
	result, _ := l.patterns.Extract(ctx, text, fields)

	var missing []Field
	for _, f := range fields {
		if _, ok := result[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 || l.fallback == nil {
		return result, nil
	}

	fallbackCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	extra, err := l.fallback.Extract(fallbackCtx, text, missing)
	if err != nil {
		l.logger.Warn("extract: fallback extractor failed", "error", err, "fields", len(missing))
		return result, nil
	}
	for f, v := range extra {
		if _, ok := result[f]; !ok {
			result[f] = v
		}
	}
	return result, nil
}
