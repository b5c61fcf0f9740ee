package openapi

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

// ExtensionKey is the vendor extension read from properties, object schemas,
// and operations. Recognised keys: widget (textarea, radio), label,
// placeholder, order, and submitLabel on operations and object schemas.
const ExtensionKey = "x-formadvisor"

// FormSchemaFromOperation maps the operation's object request body onto a
// FormSchema identified by the operation id.
func FormSchemaFromOperation(op Operation) (schema.FormSchema, error) {
	body := op.requestSchema()
	if body == nil {
		return schema.FormSchema{}, fmt.Errorf("%w: %q", ErrNoRequestBody, op.ID)
	}
	form, err := FormSchemaFromSchema(op.ID, body)
	if err != nil {
		return schema.FormSchema{}, fmt.Errorf("%w: %q", ErrNoRequestBody, op.ID)
	}
	form.Title = firstNonEmpty(op.Summary, form.Title)
	form.Description = firstNonEmpty(op.Description, form.Description)
	if op.op != nil {
		form.SubmitLabel = firstNonEmpty(stringHint(op.op.Extensions, "submitLabel"), form.SubmitLabel)
	}
	return form, nil
}

// FormSchemaFromSchema maps an object schema onto a FormSchema. Scalar
// properties become fields:
//
//	string            -> text (email/date by format, select when enumerated)
//	integer, number   -> number with minimum/maximum
//	boolean           -> checkbox
//
// Object and array properties have no field equivalent and are skipped.
// Fields are ordered by the extension's order hint, then by name.
func FormSchemaFromSchema(id string, body *openapi3.Schema) (schema.FormSchema, error) {
	if body == nil || !body.Type.Is(openapi3.TypeObject) && len(body.Properties) == 0 {
		return schema.FormSchema{}, ErrNotObject
	}

	form := schema.FormSchema{
		ID:          id,
		Title:       body.Title,
		Description: body.Description,
		SubmitLabel: stringHint(body.Extensions, "submitLabel"),
	}

	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	type ordered struct {
		field schema.FieldDefinition
		order float64
	}
	var fields []ordered
	for name, ref := range body.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		field, ok := fieldFromProperty(name, ref.Value, required[name])
		if !ok {
			continue
		}
		fields = append(fields, ordered{field: field, order: orderHint(ref.Value.Extensions)})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].order != fields[j].order {
			return fields[i].order < fields[j].order
		}
		return fields[i].field.ID < fields[j].field.ID
	})

	form.Fields = make([]schema.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		form.Fields = append(form.Fields, f.field)
	}
	return form, nil
}

func fieldFromProperty(name string, prop *openapi3.Schema, required bool) (schema.FieldDefinition, bool) {
	field := schema.FieldDefinition{
		ID:          name,
		Label:       firstNonEmpty(stringHint(prop.Extensions, "label"), prop.Title, Label(name)),
		Placeholder: firstNonEmpty(stringHint(prop.Extensions, "placeholder"), exampleText(prop.Example)),
		Required:    required,
	}
	widget := stringHint(prop.Extensions, "widget")

	switch {
	case prop.Type.Is(openapi3.TypeBoolean):
		field.Type = schema.FieldTypeCheckbox
	case prop.Type.Is(openapi3.TypeInteger), prop.Type.Is(openapi3.TypeNumber):
		field.Type = schema.FieldTypeNumber
		if prop.Min != nil || prop.Max != nil {
			field.Constraints = &schema.Constraints{Min: cloneFloat(prop.Min), Max: cloneFloat(prop.Max)}
		}
	case prop.Type.Is(openapi3.TypeString) || prop.Type == nil && len(prop.Enum) > 0:
		field.Type = stringFieldType(prop, widget)
		if field.Type.RequiresOptions() {
			field.Options = enumOptions(prop.Enum, prop.Extensions)
		}
		if field.Type.IsTextLike() {
			field.Constraints = lengthConstraints(prop)
		}
	default:
		return schema.FieldDefinition{}, false
	}
	return field, true
}

func stringFieldType(prop *openapi3.Schema, widget string) schema.FieldType {
	if len(prop.Enum) > 0 {
		if widget == string(schema.FieldTypeRadio) {
			return schema.FieldTypeRadio
		}
		return schema.FieldTypeSelect
	}
	switch prop.Format {
	case "email":
		return schema.FieldTypeEmail
	case "date":
		return schema.FieldTypeDate
	}
	if widget == string(schema.FieldTypeTextarea) {
		return schema.FieldTypeTextarea
	}
	return schema.FieldTypeText
}

func lengthConstraints(prop *openapi3.Schema) *schema.Constraints {
	c := schema.Constraints{Pattern: anchorless(prop.Pattern)}
	if prop.MinLength > 0 {
		c.MinLength = intPtr(prop.MinLength)
	}
	if prop.MaxLength != nil {
		c.MaxLength = intPtr(*prop.MaxLength)
	}
	if c == (schema.Constraints{}) {
		return nil
	}
	return &c
}

// anchorless strips ^ and $ since compiled patterns always match the whole
// value.
func anchorless(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "^")
	if strings.HasSuffix(pattern, "$") && !strings.HasSuffix(pattern, `\$`) {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	return pattern
}

// enumOptions builds choices from enum values. Labels come from an
// x-enum-labels list or map when present.
func enumOptions(enum []any, ext map[string]any) []schema.Option {
	labels := ext["x-enum-labels"]
	out := make([]schema.Option, 0, len(enum))
	for i, raw := range enum {
		if raw == nil {
			continue
		}
		value := fmt.Sprint(raw)
		label := Label(value)
		switch l := labels.(type) {
		case []any:
			if i < len(l) {
				if s, ok := l[i].(string); ok && s != "" {
					label = s
				}
			}
		case map[string]any:
			if s, ok := l[value].(string); ok && s != "" {
				label = s
			}
		}
		out = append(out, schema.Option{Value: value, Label: label})
	}
	return out
}

func hints(ext map[string]any) map[string]any {
	h, _ := ext[ExtensionKey].(map[string]any)
	return h
}

func stringHint(ext map[string]any, key string) string {
	s, _ := hints(ext)[key].(string)
	return strings.TrimSpace(s)
}

func orderHint(ext map[string]any) float64 {
	switch v := hints(ext)["order"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return math.MaxFloat64
	}
}

func exampleText(example any) string {
	if s, ok := example.(string); ok {
		return s
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intPtr(v uint64) *int {
	n := int(v)
	return &n
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
