/*
Package schema provides the type-safe validation system for step data.

A Schema maps field names to types. Built-in types cover strings, ints,
floats, bools, and slices; Email and Phone add format checks; Optional wraps
any type so the field validates successfully when absent or empty but must
match its format when present.

	s := schema.Schema{
	    "email": schema.Email(),
	    "phone": schema.Optional(schema.Phone()),
	    "tags":  schema.Optional(schema.Slice(schema.String())),
	}
	errs := schema.Validate(s, answers)

Validation never panics and never returns a Go error for bad data: failures
come back as a list of field errors for the caller to surface. Schemas can
also be parsed from type strings ("email", "string?", "[string]") so flows
can be declared in YAML.
*/
package schema
