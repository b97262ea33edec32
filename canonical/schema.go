package canonical

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateToolSchema compiles a tool's InputSchema and reports a compile
// error if it isn't a well-formed JSON Schema document, grounded on the
// teacher's registry.validatePayloadJSONAgainstSchema compile-then-validate
// idiom. Called at config-load time (one compile per tool/prompt-target
// definition) rather than per-request, so a malformed schema fails fast at
// startup instead of surfacing as a confusing per-call tool-use error.
func ValidateToolSchema(schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return fmt.Errorf("canonical: unmarshal tool schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool-schema.json", doc); err != nil {
		return fmt.Errorf("canonical: add tool schema resource: %w", err)
	}
	if _, err := c.Compile("tool-schema.json"); err != nil {
		return fmt.Errorf("canonical: compile tool schema: %w", err)
	}
	return nil
}

// ValidateToolInput validates a tool-use call's input payload against its
// declared InputSchema, returning a descriptive error (rather than
// panicking or silently accepting malformed input) the caller can surface
// as a ResponseParsing-kind error.
func ValidateToolInput(schema, input json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var schemaDoc any
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return fmt.Errorf("canonical: unmarshal tool schema: %w", err)
	}
	var inputDoc any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &inputDoc); err != nil {
			return fmt.Errorf("canonical: unmarshal tool input: %w", err)
		}
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool-schema.json", schemaDoc); err != nil {
		return fmt.Errorf("canonical: add tool schema resource: %w", err)
	}
	schemaObj, err := c.Compile("tool-schema.json")
	if err != nil {
		return fmt.Errorf("canonical: compile tool schema: %w", err)
	}
	if err := schemaObj.Validate(inputDoc); err != nil {
		return fmt.Errorf("canonical: tool input failed schema validation: %w", err)
	}
	return nil
}
