package render

import (
	"strings"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
)

// Widget identifiers chosen for each field type.
const (
	WidgetTextInput   = "text-input"
	WidgetEmailInput  = "email-input"
	WidgetNumberInput = "number-input"
	WidgetTextarea    = "textarea"
	WidgetSelect      = "select"
	WidgetCheckbox    = "checkbox"
	WidgetRadioGroup  = "radio-group"
	WidgetDatePicker  = "date-picker"
)

// WidgetFor maps a field type onto its presentation widget.
func WidgetFor(t schema.FieldType) (string, bool) {
	switch t {
	case schema.FieldTypeText:
		return WidgetTextInput, true
	case schema.FieldTypeEmail:
		return WidgetEmailInput, true
	case schema.FieldTypeNumber:
		return WidgetNumberInput, true
	case schema.FieldTypeTextarea:
		return WidgetTextarea, true
	case schema.FieldTypeSelect:
		return WidgetSelect, true
	case schema.FieldTypeCheckbox:
		return WidgetCheckbox, true
	case schema.FieldTypeRadio:
		return WidgetRadioGroup, true
	case schema.FieldTypeDate:
		return WidgetDatePicker, true
	default:
		return "", false
	}
}

// Instruction is everything a strategy needs to paint one field.
type Instruction struct {
	FieldID     string
	Type        schema.FieldType
	Widget      string
	Label       string
	Placeholder string
	Required    bool
	Options     []schema.Option
	Value       any
	// Error is the structural message, set only once the field was edited.
	Error    string
	Findings []advisory.Finding
	Pending  bool
	Phase    session.Phase
}

// Invalid reports whether the field shows a structural error.
func (i Instruction) Invalid() bool {
	return i.Error != ""
}

// Selected reports whether value matches the current field value.
func (i Instruction) Selected(value string) bool {
	current, ok := i.Value.(string)
	return ok && current == value
}

// Checked reports whether a checkbox value is on.
func (i Instruction) Checked() bool {
	switch v := i.Value.(type) {
	case bool:
		return v
	case string:
		return ParseInput(schema.FieldTypeCheckbox, v) == true
	default:
		return false
	}
}

// NewInstruction merges a field state into a render instruction.
func NewInstruction(state session.FieldState) Instruction {
	def := state.Definition
	widget, _ := WidgetFor(def.Type)
	inst := Instruction{
		FieldID:     def.ID,
		Type:        def.Type,
		Widget:      widget,
		Label:       def.DisplayLabel(),
		Placeholder: def.Placeholder,
		Required:    def.Required,
		Options:     append([]schema.Option(nil), def.Options...),
		Value:       state.Value,
		Findings:    append([]advisory.Finding(nil), state.Advisory.Findings...),
		Pending:     state.Advisory.Status == session.AdvisoryPending,
		Phase:       state.Phase,
	}
	if state.Touched && !state.Structural.Valid {
		inst.Error = state.Structural.Message
	}
	return inst
}

// ParseInput converts raw text captured by a UI into the value passed to a
// session. Checkboxes become booleans; every other known type keeps the text
// and leaves coercion to the validator. Unknown types yield nil, since no
// compiled validator accepts them.
func ParseInput(t schema.FieldType, raw string) any {
	switch t {
	case schema.FieldTypeCheckbox:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "on", "yes", "y", "1", "checked":
			return true
		default:
			return false
		}
	case schema.FieldTypeText, schema.FieldTypeEmail, schema.FieldTypeNumber, schema.FieldTypeTextarea,
		schema.FieldTypeSelect, schema.FieldTypeRadio, schema.FieldTypeDate:
		return raw
	default:
		return nil
	}
}
