// Package openapi derives form schemas from OpenAPI 3 documents. Each
// operation with an object request body becomes one FormSchema whose fields
// mirror the body's scalar properties.
package openapi
