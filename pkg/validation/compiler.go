package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

// Rule identifiers reported in Outcome.Rule. They follow the order in which
// text-like checks run: required, format, minLength, maxLength, pattern.
const (
	RuleRequired  = "required"
	RuleEmail     = "email"
	RuleOption    = "option"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleNumber    = "number"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleDate      = "date"
)

// Outcome is the structural verdict for a single field value. Only the first
// violated rule is reported.
type Outcome struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

func pass() Outcome {
	return Outcome{Valid: true}
}

func fail(rule, message string) Outcome {
	return Outcome{Valid: false, Rule: rule, Message: message}
}

// Report aggregates outcomes for a whole value map.
type Report struct {
	Outcomes map[string]Outcome
	// Failed lists failing field ids in schema order.
	Failed []string
}

// Valid reports whether every field passed.
func (r Report) Valid() bool {
	return len(r.Failed) == 0
}

// Validator is the compiled, read-only structural checker for one schema. It
// is safe for concurrent use and may be shared by every session rendering
// the schema.
type Validator struct {
	schema      schema.FormSchema
	fingerprint string
	checks      map[string]fieldCheck
}

// Compile builds a Validator from s. It fails fast with a *SchemaError when
// the schema has duplicate ids, choice fields without options, unknown field
// types, malformed patterns, or inverted bounds. The schema is copied, so
// later edits to s never reach the compiled validator.
func Compile(s schema.FormSchema) (*Validator, error) {
	return compile(s.Clone())
}

func compile(frozen schema.FormSchema) (*Validator, error) {
	schemaErr := &SchemaError{SchemaID: frozen.ID}
	checks := make(map[string]fieldCheck, len(frozen.Fields))

	for _, field := range frozen.Fields {
		if strings.TrimSpace(field.ID) == "" {
			schemaErr.add("", ErrEmptyFieldID)
			continue
		}
		if _, dup := checks[field.ID]; dup {
			schemaErr.add(field.ID, ErrDuplicateField)
			continue
		}
		check, errs := compileField(field)
		for _, err := range errs {
			schemaErr.add(field.ID, err)
		}
		if check != nil {
			checks[field.ID] = check
		}
	}

	if len(schemaErr.Issues) > 0 {
		return nil, schemaErr
	}

	return &Validator{
		schema:      frozen,
		fingerprint: frozen.Fingerprint(),
		checks:      checks,
	}, nil
}

func compileField(field schema.FieldDefinition) (fieldCheck, []error) {
	label := field.DisplayLabel()
	constraints := schema.Constraints{}
	if field.Constraints != nil {
		constraints = *field.Constraints
	}

	switch field.Type {
	case schema.FieldTypeText, schema.FieldTypeEmail, schema.FieldTypeTextarea,
		schema.FieldTypeSelect, schema.FieldTypeRadio:
		return compileText(field, label, constraints)
	case schema.FieldTypeNumber:
		if constraints.Min != nil && constraints.Max != nil && *constraints.Min > *constraints.Max {
			return nil, []error{fmt.Errorf("%w: min %v greater than max %v", ErrInvalidBounds, *constraints.Min, *constraints.Max)}
		}
		return numberCheck{label: label, required: field.Required, min: constraints.Min, max: constraints.Max}, nil
	case schema.FieldTypeDate:
		return dateCheck{label: label, required: field.Required}, nil
	case schema.FieldTypeCheckbox:
		// required is accepted on checkboxes but never enforced: an unchecked
		// box is a valid false value.
		return checkboxCheck{}, nil
	default:
		return nil, []error{fmt.Errorf("%w %q", ErrUnknownFieldType, field.Type)}
	}
}

func compileText(field schema.FieldDefinition, label string, constraints schema.Constraints) (fieldCheck, []error) {
	var errs []error

	check := textCheck{
		label:    label,
		required: field.Required,
		email:    field.Type == schema.FieldTypeEmail,
		minLen:   constraints.MinLength,
		maxLen:   constraints.MaxLength,
	}

	if field.Type.RequiresOptions() {
		if len(field.Options) == 0 {
			errs = append(errs, ErrMissingOptions)
		}
		check.options = make(map[string]struct{}, len(field.Options))
		for _, opt := range field.Options {
			check.options[opt.Value] = struct{}{}
		}
	}

	if check.minLen != nil && check.maxLen != nil && *check.minLen > *check.maxLen {
		errs = append(errs, fmt.Errorf("%w: minLength %d greater than maxLength %d", ErrInvalidBounds, *check.minLen, *check.maxLen))
	}

	if expr := constraints.Pattern; expr != "" {
		re, err := regexp.Compile(`^(?:` + expr + `)$`)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidPattern, err))
		}
		check.pattern = re
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return check, nil
}

// Schema returns a copy of the compiled schema.
func (v *Validator) Schema() schema.FormSchema {
	return v.schema.Clone()
}

// Fingerprint identifies the schema this validator was compiled from.
func (v *Validator) Fingerprint() string {
	return v.fingerprint
}

// Fields returns the compiled field definitions in schema order.
func (v *Validator) Fields() []schema.FieldDefinition {
	return v.schema.Clone().Fields
}

// Field returns the definition for id.
func (v *Validator) Field(id string) (schema.FieldDefinition, bool) {
	return v.schema.Field(id)
}

// Check runs the structural pipeline for one field.
func (v *Validator) Check(fieldID string, value any) (Outcome, error) {
	check, ok := v.checks[fieldID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w %q", ErrUnknownField, fieldID)
	}
	return check.check(value), nil
}

// CheckAll validates every schema field against values. Missing keys are
// checked as empty values.
func (v *Validator) CheckAll(values map[string]any) Report {
	report := Report{Outcomes: make(map[string]Outcome, len(v.schema.Fields))}
	for _, field := range v.schema.Fields {
		outcome := v.checks[field.ID].check(values[field.ID])
		report.Outcomes[field.ID] = outcome
		if !outcome.Valid {
			report.Failed = append(report.Failed, field.ID)
		}
	}
	return report
}

// Coerce converts a raw value into the field's canonical Go type: string for
// text-like fields, float64 (or nil when blank) for numbers, time.Time (or
// nil) for dates, and bool for checkboxes.
func (v *Validator) Coerce(fieldID string, value any) (any, error) {
	check, ok := v.checks[fieldID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, fieldID)
	}
	return check.coerce(value)
}

// CoerceAll coerces every schema field, keyed by id.
func (v *Validator) CoerceAll(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(v.schema.Fields))
	for _, field := range v.schema.Fields {
		coerced, err := v.checks[field.ID].coerce(values[field.ID])
		if err != nil {
			return nil, fmt.Errorf("validation: coerce %q: %w", field.ID, err)
		}
		out[field.ID] = coerced
	}
	return out, nil
}
