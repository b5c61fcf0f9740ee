package advisory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

// Rule names reported in Finding.Rule by the built-in rule set.
const (
	RuleEmailSeparator = "email-separator"
	RuleNameLength     = "name-length"
	RuleNameCharacters = "name-characters"
	RuleBriefContent   = "brief-content"
	RuleAgeRange       = "age-range"
)

const (
	minAge            = 13
	maxAge            = 120
	briefContentLimit = 10
)

// Rule inspects a non-blank value and returns zero or more findings. Rules
// must be deterministic and free of side effects.
type Rule func(req Request, text string) []Finding

// Option customises an Engine.
type Option func(*Engine)

// WithRules appends rules after the built-in set.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		for _, rule := range rules {
			if rule != nil {
				e.rules = append(e.rules, rule)
			}
		}
	}
}

// WithoutDefaultRules starts the engine with an empty rule set.
func WithoutDefaultRules() Option {
	return func(e *Engine) {
		e.rules = nil
	}
}

// WithLatency delays every evaluation by d to mimic a remote call.
func WithLatency(d time.Duration) Option {
	return WithLatencyFunc(func(Request) time.Duration { return d })
}

// WithLatencyFunc delays each evaluation by the duration fn returns.
func WithLatencyFunc(fn func(Request) time.Duration) Option {
	return func(e *Engine) {
		e.latency = fn
	}
}

// Engine is the heuristic advisory rule evaluator. It keeps no memory between
// calls and is safe for concurrent use.
type Engine struct {
	rules   []Rule
	latency func(Request) time.Duration
}

// New constructs an Engine with the built-in rules.
func New(options ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// DefaultRules returns the built-in rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{emailSeparatorRule, nameRule, briefContentRule, ageRule}
}

// Evaluate runs every rule against req. Blank values produce no findings.
func (e *Engine) Evaluate(ctx context.Context, req Request) ([]Finding, error) {
	if e.latency != nil {
		if err := sleep(ctx, e.latency(req)); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Check(req), nil
}

// Check is the synchronous form of Evaluate without latency.
func (e *Engine) Check(req Request) []Finding {
	text := valueText(req.Value)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var findings []Finding
	for _, rule := range e.rules {
		findings = append(findings, rule(req, text)...)
	}
	return findings
}

func emailSeparatorRule(req Request, text string) []Finding {
	if req.Type != schema.FieldTypeEmail || strings.Contains(text, "@") {
		return nil
	}
	return []Finding{{
		Severity:   SeverityError,
		Message:    "Email address is missing the '@' separator",
		Confidence: 0.95,
		Rule:       RuleEmailSeparator,
	}}
}

func nameRule(req Request, text string) []Finding {
	if !DenotesPersonName(req.FieldID) {
		return nil
	}
	var findings []Finding
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 2 {
		findings = append(findings, Finding{
			Severity:   SeverityWarning,
			Message:    "Name seems too short",
			Confidence: 0.7,
			Rule:       RuleNameLength,
		})
	}
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			findings = append(findings, Finding{
				Severity:   SeverityWarning,
				Message:    "Name contains numbers or special characters",
				Confidence: 0.8,
				Rule:       RuleNameCharacters,
			})
			break
		}
	}
	return findings
}

func briefContentRule(req Request, text string) []Finding {
	if req.Type != schema.FieldTypeTextarea {
		return nil
	}
	if n := utf8.RuneCountInString(text); n > 0 && n < briefContentLimit {
		return []Finding{{
			Severity:   SeverityInfo,
			Message:    "Brief content, consider adding more detail",
			Confidence: 0.6,
			Rule:       RuleBriefContent,
		}}
	}
	return nil
}

func ageRule(req Request, text string) []Finding {
	if req.Type != schema.FieldTypeNumber || !DenotesAge(req.FieldID) {
		return nil
	}
	age, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	if age >= minAge && age <= maxAge {
		return nil
	}
	return []Finding{{
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("Age is outside the expected range of %d to %d", minAge, maxAge),
		Confidence: 0.85,
		Rule:       RuleAgeRange,
	}}
}

// nameQualifiers turn a trailing "name" token into something other than a
// person's name ("userName", "file_name").
var nameQualifiers = map[string]struct{}{
	"user": {}, "file": {}, "host": {}, "domain": {}, "company": {},
	"org": {}, "organization": {}, "business": {}, "project": {}, "product": {},
}

var nameTokens = map[string]struct{}{
	"name": {}, "firstname": {}, "lastname": {}, "fullname": {}, "surname": {},
	"forename": {}, "givenname": {},
}

// DenotesPersonName reports whether a field id names a person, for example
// "name", "firstName", "last_name" or "contact-full-name". Ids such as
// "username" or "companyName" do not.
func DenotesPersonName(fieldID string) bool {
	tokens := idTokens(fieldID)
	for i, tok := range tokens {
		if _, ok := nameTokens[tok]; !ok {
			continue
		}
		if tok == "name" && i > 0 {
			if _, qualified := nameQualifiers[tokens[i-1]]; qualified {
				continue
			}
		}
		return true
	}
	return false
}

// DenotesAge reports whether a field id carries an "age" token.
func DenotesAge(fieldID string) bool {
	for _, tok := range idTokens(fieldID) {
		if tok == "age" {
			return true
		}
	}
	return false
}

// idTokens splits an identifier on separators and camelCase boundaries and
// lowercases the parts.
func idTokens(id string) []string {
	var (
		tokens  []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	runes := []rune(id)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return tokens
}

func valueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.DateOnly)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
