package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateToolSchemaAcceptsWellFormedSchema(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)
	assert.NoError(t, ValidateToolSchema(schema))
}

func TestValidateToolSchemaRejectsMalformedJSON(t *testing.T) {
	err := ValidateToolSchema(json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestValidateToolSchemaEmptyIsNoop(t *testing.T) {
	assert.NoError(t, ValidateToolSchema(nil))
}

func TestValidateToolInput(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)

	assert.NoError(t, ValidateToolInput(schema, json.RawMessage(`{"city":"Boston"}`)))
	assert.Error(t, ValidateToolInput(schema, json.RawMessage(`{"city":42}`)))
	assert.Error(t, ValidateToolInput(schema, json.RawMessage(`{}`)))
}
