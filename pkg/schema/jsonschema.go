package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// DocumentJSONSchema describes the FormSchema document format as a JSON Schema
// so editors can validate schema files before they reach the compiler.
func DocumentJSONSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	out := reflector.Reflect(&FormSchema{})
	out.Title = "Form schema"
	out.Description = "Declarative description of a form's fields and constraints."
	return out
}

// DocumentJSONSchemaBytes renders DocumentJSONSchema as indented JSON.
func DocumentJSONSchemaBytes() ([]byte, error) {
	return json.MarshalIndent(DocumentJSONSchema(), "", "  ")
}
