// Package schema provides JSON Schema generation and argument validation
// for slunk tools.
//
// Tool input schemas are generated from Go struct types via reflection.
// Struct tags control the generated schema:
//
//	type SearchInput struct {
//	    Query string `json:"query" jsonschema:"required,description=Search text"`
//	    Limit int    `json:"limit" jsonschema:"description=Maximum results"`
//	}
//
// The same Schema value validates incoming tool arguments before dispatch:
// a missing required key or a value of the wrong kind produces a
// ValidationError naming the offending field.
package schema
