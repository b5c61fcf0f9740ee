package schema

import "strings"

// FieldType is the closed set of input kinds a form field can declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeDate     FieldType = "date"
)

// FieldTypes lists every supported field type in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeEmail,
		FieldTypeNumber,
		FieldTypeTextarea,
		FieldTypeSelect,
		FieldTypeCheckbox,
		FieldTypeRadio,
		FieldTypeDate,
	}
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeNumber, FieldTypeTextarea,
		FieldTypeSelect, FieldTypeCheckbox, FieldTypeRadio, FieldTypeDate:
		return true
	default:
		return false
	}
}

// IsTextLike reports whether values of this type are validated as strings
// (required/minLength/maxLength/pattern apply).
func (t FieldType) IsTextLike() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeTextarea, FieldTypeSelect, FieldTypeRadio:
		return true
	default:
		return false
	}
}

// RequiresOptions reports whether the type needs a non-empty choice set.
func (t FieldType) RequiresOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeRadio
}

// Constraints carries the declarative bounds attached to a field. Length and
// pattern constraints apply to text-like fields; Min/Max apply to numbers.
type Constraints struct {
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Option is one entry of a select/radio choice set.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldDefinition describes a single input of a form.
type FieldDefinition struct {
	ID          string       `json:"id" yaml:"id" jsonschema:"required"`
	Type        FieldType    `json:"type" yaml:"type" jsonschema:"required,enum=text,enum=email,enum=number,enum=textarea,enum=select,enum=checkbox,enum=radio,enum=date"`
	Label       string       `json:"label" yaml:"label"`
	Placeholder string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Options     []Option     `json:"options,omitempty" yaml:"options,omitempty"`
}

// DisplayLabel returns the label, falling back to the field id.
func (f FieldDefinition) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.ID
}

// HasOption reports whether value matches one of the declared option values.
func (f FieldDefinition) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// FormSchema is the declarative description of a form. Treat it as an
// immutable value once compiled: structural edits must produce a new schema
// that is compiled again.
type FormSchema struct {
	ID          string            `json:"id" yaml:"id" jsonschema:"required"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields" jsonschema:"required"`
	SubmitLabel string            `json:"submitLabel,omitempty" yaml:"submitLabel,omitempty"`
}

// Field looks up a field definition by id.
func (s FormSchema) Field(id string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// FieldIDs returns the field ids in declaration order.
func (s FormSchema) FieldIDs() []string {
	ids := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		ids = append(ids, field.ID)
	}
	return ids
}

// Clone returns a deep copy so callers holding the original cannot mutate a
// compiled copy through shared slices or pointers.
func (s FormSchema) Clone() FormSchema {
	out := s
	if s.Fields == nil {
		return out
	}
	out.Fields = make([]FieldDefinition, len(s.Fields))
	for i, field := range s.Fields {
		out.Fields[i] = field.clone()
	}
	return out
}

func (f FieldDefinition) clone() FieldDefinition {
	out := f
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	if f.Constraints != nil {
		c := *f.Constraints
		c.MinLength = cloneInt(f.Constraints.MinLength)
		c.MaxLength = cloneInt(f.Constraints.MaxLength)
		c.Min = cloneFloat(f.Constraints.Min)
		c.Max = cloneFloat(f.Constraints.Max)
		out.Constraints = &c
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
