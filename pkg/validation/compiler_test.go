package validation_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func mustCompile(t *testing.T, s schema.FormSchema) *validation.Validator {
	t.Helper()

	v, err := validation.Compile(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return v
}

func mustCheck(t *testing.T, v *validation.Validator, id string, value any) validation.Outcome {
	t.Helper()

	outcome, err := v.Check(id, value)
	if err != nil {
		t.Fatalf("check %s: %v", id, err)
	}
	return outcome
}

func TestCompileRejectsInvalidSchemas(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		fields []schema.FieldDefinition
		want   error
	}{
		{
			name: "duplicate id",
			fields: []schema.FieldDefinition{
				{ID: "name", Type: schema.FieldTypeText},
				{ID: "name", Type: schema.FieldTypeEmail},
			},
			want: validation.ErrDuplicateField,
		},
		{
			name:   "select without options",
			fields: []schema.FieldDefinition{{ID: "topic", Type: schema.FieldTypeSelect}},
			want:   validation.ErrMissingOptions,
		},
		{
			name:   "radio without options",
			fields: []schema.FieldDefinition{{ID: "size", Type: schema.FieldTypeRadio, Options: []schema.Option{}}},
			want:   validation.ErrMissingOptions,
		},
		{
			name:   "empty id",
			fields: []schema.FieldDefinition{{ID: "  ", Type: schema.FieldTypeText}},
			want:   validation.ErrEmptyFieldID,
		},
		{
			name:   "unknown type",
			fields: []schema.FieldDefinition{{ID: "color", Type: "color"}},
			want:   validation.ErrUnknownFieldType,
		},
		{
			name: "bad pattern",
			fields: []schema.FieldDefinition{{ID: "code", Type: schema.FieldTypeText, Constraints: &schema.Constraints{
				Pattern: "([a-z",
			}}},
			want: validation.ErrInvalidPattern,
		},
		{
			name: "inverted numeric bounds",
			fields: []schema.FieldDefinition{{ID: "qty", Type: schema.FieldTypeNumber, Constraints: &schema.Constraints{
				Min: floatPtr(10), Max: floatPtr(1),
			}}},
			want: validation.ErrInvalidBounds,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := validation.Compile(schema.FormSchema{ID: "broken", Fields: tc.fields})
			if err == nil {
				t.Fatalf("expected compile error")
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if _, ok := validation.AsSchemaError(err); !ok {
				t.Fatalf("expected *SchemaError, got %T", err)
			}
		})
	}
}

func TestCompileCollectsEveryIssue(t *testing.T) {
	t.Parallel()

	_, err := validation.Compile(schema.FormSchema{ID: "broken", Fields: []schema.FieldDefinition{
		{ID: "a", Type: schema.FieldTypeText},
		{ID: "a", Type: schema.FieldTypeText},
		{ID: "b", Type: schema.FieldTypeSelect},
	}})
	schemaErr, ok := validation.AsSchemaError(err)
	if !ok {
		t.Fatalf("expected schema error, got %v", err)
	}
	got := make([]string, 0, len(schemaErr.Issues))
	for _, issue := range schemaErr.Issues {
		got = append(got, issue.Field)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("issue fields mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAcceptsEveryFieldType(t *testing.T) {
	t.Parallel()

	choices := []schema.Option{{Value: "a", Label: "A"}}
	fields := make([]schema.FieldDefinition, 0, len(schema.FieldTypes()))
	for _, ft := range schema.FieldTypes() {
		field := schema.FieldDefinition{ID: string(ft), Type: ft}
		if ft.RequiresOptions() {
			field.Options = choices
		}
		fields = append(fields, field)
	}

	v := mustCompile(t, schema.FormSchema{ID: "all", Fields: fields})
	if diff := cmp.Diff(len(fields), len(v.Fields())); diff != "" {
		t.Fatalf("field count mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredTextFailsOnBlank(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID:       "code",
		Type:     schema.FieldTypeText,
		Label:    "Code",
		Required: true,
		Constraints: &schema.Constraints{
			MinLength: intPtr(3),
			MaxLength: intPtr(5),
			Pattern:   `[A-Z]+`,
		},
	}}})

	for _, input := range []any{nil, "", "   ", "\t\n"} {
		got := mustCheck(t, v, "code", input)
		want := validation.Outcome{Valid: false, Rule: validation.RuleRequired, Message: "Code is required"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("input %q (-want +got):\n%s", input, diff)
		}
	}
}

func TestFirstFailureWins(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID:    "code",
		Type:  schema.FieldTypeText,
		Label: "Code",
		Constraints: &schema.Constraints{
			MinLength: intPtr(4),
			MaxLength: intPtr(6),
			Pattern:   `[A-Z]+`,
		},
	}}})

	cases := []struct {
		input string
		rule  string
	}{
		{input: "ab", rule: validation.RuleMinLength},
		{input: "abcdefgh", rule: validation.RuleMaxLength},
		{input: "abcd", rule: validation.RulePattern},
		{input: "ABCD", rule: ""},
	}
	for _, tc := range cases {
		got := mustCheck(t, v, "code", tc.input)
		if got.Rule != tc.rule {
			t.Fatalf("input %q: expected rule %q, got %+v", tc.input, tc.rule, got)
		}
		if got.Valid != (tc.rule == "") {
			t.Fatalf("input %q: unexpected validity %+v", tc.input, got)
		}
	}
}

func TestPatternMustMatchWholeValue(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "zip", Type: schema.FieldTypeText, Constraints: &schema.Constraints{Pattern: `\d{5}`},
	}}})

	if got := mustCheck(t, v, "zip", "123456"); got.Valid {
		t.Fatalf("partial match must fail")
	}
	if got := mustCheck(t, v, "zip", "12345"); !got.Valid {
		t.Fatalf("full match must pass: %+v", got)
	}
}

func TestEmailField(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "email", Type: schema.FieldTypeEmail, Label: "Email", Required: true,
	}}})

	got := mustCheck(t, v, "email", "bob")
	want := validation.Outcome{Valid: false, Rule: validation.RuleEmail, Message: "Please enter a valid email address"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalid email (-want +got):\n%s", diff)
	}
	if got := mustCheck(t, v, "email", "bob@x.com"); !got.Valid {
		t.Fatalf("expected valid email, got %+v", got)
	}
}

func TestNumberField(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "age", Type: schema.FieldTypeNumber, Label: "Age",
		Constraints: &schema.Constraints{Min: floatPtr(13), Max: floatPtr(120)},
	}}})

	cases := []struct {
		input any
		want  validation.Outcome
	}{
		{input: "200", want: validation.Outcome{Rule: validation.RuleMax, Message: "Age must be at most 120"}},
		{input: 5, want: validation.Outcome{Rule: validation.RuleMin, Message: "Age must be at least 13"}},
		{input: "abc", want: validation.Outcome{Rule: validation.RuleNumber, Message: "Age must be a number"}},
		{input: "NaN", want: validation.Outcome{Rule: validation.RuleNumber, Message: "Age must be a number"}},
		{input: true, want: validation.Outcome{Rule: validation.RuleNumber, Message: "Age must be a number"}},
		{input: "13", want: validation.Outcome{Valid: true}},
		{input: 120.0, want: validation.Outcome{Valid: true}},
		{input: "", want: validation.Outcome{Valid: true}},
	}
	for _, tc := range cases {
		got := mustCheck(t, v, "age", tc.input)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("input %v (-want +got):\n%s", tc.input, diff)
		}
	}

	coerced, err := v.Coerce("age", " 42 ")
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if coerced != 42.0 {
		t.Fatalf("expected 42, got %v", coerced)
	}
}

func TestDateField(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "birthday", Type: schema.FieldTypeDate, Label: "Birthday", Required: true,
	}}})

	if got := mustCheck(t, v, "birthday", ""); got.Rule != validation.RuleRequired {
		t.Fatalf("expected required failure, got %+v", got)
	}
	if got := mustCheck(t, v, "birthday", "2023-02-30"); got.Rule != validation.RuleDate {
		t.Fatalf("expected date failure, got %+v", got)
	}
	if got := mustCheck(t, v, "birthday", "2024-02-29"); !got.Valid {
		t.Fatalf("expected leap day to pass, got %+v", got)
	}
	if got := mustCheck(t, v, "birthday", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)); !got.Valid {
		t.Fatalf("expected time.Time to pass, got %+v", got)
	}
}

func TestRequiredCheckboxIsNotEnforced(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "terms", Type: schema.FieldTypeCheckbox, Required: true,
	}}})

	for _, input := range []any{nil, false, "", "off"} {
		if got := mustCheck(t, v, "terms", input); !got.Valid {
			t.Fatalf("checkbox %v should pass, got %+v", input, got)
		}
	}
	coerced, err := v.Coerce("terms", "on")
	if err != nil || coerced != true {
		t.Fatalf("expected on -> true, got %v (%v)", coerced, err)
	}
}

func TestChoiceMembership(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{
		ID: "topic", Type: schema.FieldTypeSelect, Label: "Topic", Required: true,
		Options: []schema.Option{{Value: "sales", Label: "Sales"}},
	}}})

	if got := mustCheck(t, v, "topic", "marketing"); got.Rule != validation.RuleOption {
		t.Fatalf("expected option failure, got %+v", got)
	}
	if got := mustCheck(t, v, "topic", "sales"); !got.Valid {
		t.Fatalf("expected pass, got %+v", got)
	}
}

func TestCheckUnknownField(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f"})
	if _, err := v.Check("ghost", "x"); !errors.Is(err, validation.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestCheckAllIsIdempotent(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{
		{ID: "name", Type: schema.FieldTypeText, Required: true},
		{ID: "email", Type: schema.FieldTypeEmail},
		{ID: "age", Type: schema.FieldTypeNumber, Constraints: &schema.Constraints{Max: floatPtr(10)}},
	}})

	values := map[string]any{"name": "", "email": "nope", "age": "11"}
	first := v.CheckAll(values)
	second := v.CheckAll(values)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reports differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "email", "age"}, first.Failed); diff != "" {
		t.Fatalf("failed ids mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileCopiesSchema(t *testing.T) {
	t.Parallel()

	s := schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{ID: "name", Type: schema.FieldTypeText}}}
	v := mustCompile(t, s)

	s.Fields[0].Required = true
	if got := mustCheck(t, v, "name", ""); !got.Valid {
		t.Fatalf("mutating the source schema must not affect the compiled validator")
	}
}

func TestCacheReusesAndRecompiles(t *testing.T) {
	t.Parallel()

	cache := validation.NewCache()
	s := schema.FormSchema{ID: "f", Fields: []schema.FieldDefinition{{ID: "name", Type: schema.FieldTypeText}}}

	var wg sync.WaitGroup
	results := make([]*validation.Validator, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get(s)
			if err != nil {
				t.Errorf("cache get: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()
	for _, v := range results[1:] {
		if v != results[0] {
			t.Fatalf("expected a single shared validator")
		}
	}

	edited := s.Clone()
	edited.Fields[0].Required = true
	recompiled, err := cache.Get(edited)
	if err != nil {
		t.Fatalf("cache get edited: %v", err)
	}
	if recompiled == results[0] {
		t.Fatalf("edited schema must be recompiled")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached validators, got %d", cache.Len())
	}

	if _, err := cache.Get(schema.FormSchema{ID: "bad", Fields: []schema.FieldDefinition{{ID: "x", Type: schema.FieldTypeRadio}}}); err == nil {
		t.Fatalf("expected schema error")
	}
	if cache.Len() != 2 {
		t.Fatalf("schema errors must not be cached")
	}
}
