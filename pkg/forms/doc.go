// Package forms wires the source -> schema -> validator -> session -> render
// pipeline behind a single entry point. Sources may be native form schema
// documents (JSON or YAML), JSON Schema object documents, or OpenAPI
// documents, in which case an operation id selects the request body to turn
// into a form.
package forms
