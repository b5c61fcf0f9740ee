package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the canonical calendar date format accepted for date fields.
const DateLayout = "2006-01-02"

var (
	errNotANumber = errors.New("not a number")
	errNotADate   = errors.New("not a valid date")
)

// emailValidate supplies the address grammar; validator.Validate is safe for
// concurrent use.
var emailValidate = validator.New()

// fieldCheck is implemented by one variant per field-type family. Each
// variant carries only the constraints meaningful for it.
type fieldCheck interface {
	check(value any) Outcome
	coerce(value any) (any, error)
}

type textCheck struct {
	label    string
	required bool
	email    bool
	options  map[string]struct{}
	minLen   *int
	maxLen   *int
	pattern  *regexp.Regexp
}

func (c textCheck) check(value any) Outcome {
	text := stringValue(value)
	if strings.TrimSpace(text) == "" {
		if c.required {
			return fail(RuleRequired, fmt.Sprintf("%s is required", c.label))
		}
		return pass()
	}
	if c.email && emailValidate.Var(text, "email") != nil {
		return fail(RuleEmail, "Please enter a valid email address")
	}
	if c.options != nil {
		if _, ok := c.options[text]; !ok {
			return fail(RuleOption, fmt.Sprintf("%s must be one of the available options", c.label))
		}
	}
	length := utf8.RuneCountInString(text)
	if c.minLen != nil && length < *c.minLen {
		return fail(RuleMinLength, fmt.Sprintf("%s must be at least %d characters", c.label, *c.minLen))
	}
	if c.maxLen != nil && length > *c.maxLen {
		return fail(RuleMaxLength, fmt.Sprintf("%s must be at most %d characters", c.label, *c.maxLen))
	}
	if c.pattern != nil && !c.pattern.MatchString(text) {
		return fail(RulePattern, fmt.Sprintf("%s format is invalid", c.label))
	}
	return pass()
}

func (c textCheck) coerce(value any) (any, error) {
	return stringValue(value), nil
}

type numberCheck struct {
	label    string
	required bool
	min      *float64
	max      *float64
}

func (c numberCheck) check(value any) Outcome {
	num, present, err := toFloat(value)
	if err != nil {
		return fail(RuleNumber, fmt.Sprintf("%s must be a number", c.label))
	}
	if !present {
		if c.required {
			return fail(RuleRequired, fmt.Sprintf("%s is required", c.label))
		}
		return pass()
	}
	if c.min != nil && num < *c.min {
		return fail(RuleMin, fmt.Sprintf("%s must be at least %s", c.label, formatFloat(*c.min)))
	}
	if c.max != nil && num > *c.max {
		return fail(RuleMax, fmt.Sprintf("%s must be at most %s", c.label, formatFloat(*c.max)))
	}
	return pass()
}

func (c numberCheck) coerce(value any) (any, error) {
	num, present, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return num, nil
}

type dateCheck struct {
	label    string
	required bool
}

func (c dateCheck) check(value any) Outcome {
	_, present, err := toDate(value)
	if err != nil {
		return fail(RuleDate, fmt.Sprintf("%s must be a valid date", c.label))
	}
	if !present && c.required {
		return fail(RuleRequired, fmt.Sprintf("%s is required", c.label))
	}
	return pass()
}

func (c dateCheck) coerce(value any) (any, error) {
	date, present, err := toDate(value)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return date, nil
}

type checkboxCheck struct{}

func (checkboxCheck) check(any) Outcome {
	return pass()
}

func (checkboxCheck) coerce(value any) (any, error) {
	return toBool(value), nil
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// IsBlank reports whether value carries no user input: nil, an empty or
// whitespace-only string, or a zero time.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}

func toFloat(value any) (float64, bool, error) {
	var out float64
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, true, errNotANumber
		}
		out = parsed
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, true, errNotANumber
		}
		out = parsed
	case int:
		out = float64(v)
	case int8:
		out = float64(v)
	case int16:
		out = float64(v)
	case int32:
		out = float64(v)
	case int64:
		out = float64(v)
	case uint:
		out = float64(v)
	case uint8:
		out = float64(v)
	case uint16:
		out = float64(v)
	case uint32:
		out = float64(v)
	case uint64:
		out = float64(v)
	case float32:
		out = float64(v)
	case float64:
		out = v
	default:
		return 0, true, errNotANumber
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, true, errNotANumber
	}
	return out, true, nil
}

func toDate(value any) (time.Time, bool, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, nil
		}
		return v, true, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false, nil
		}
		for _, layout := range []string{DateLayout, time.RFC3339} {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, true, nil
			}
		}
		return time.Time{}, true, errNotADate
	default:
		return time.Time{}, true, errNotADate
	}
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "yes", "1", "checked":
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
