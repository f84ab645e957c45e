package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const actionSchemaDoc = `{
	"type": "object",
	"required": ["assetId", "action", "faction"],
	"properties": {
		"assetId": {"type": "string", "minLength": 1},
		"action": {"type": "string", "minLength": 1},
		"faction": {"type": "string", "enum": ["red", "blue"]}
	}
}`

const scriptSchemaDoc = `{
	"type": "object",
	"required": ["name", "commands"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"commands": {"type": "array", "items": {"type": "string"}}
	}
}`

var (
	actionSchema = mustSchema(actionSchemaDoc)
	scriptSchema = mustSchema(scriptSchemaDoc)
)

func mustSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(err)
	}
	return schema
}

// validate checks body against schema and returns a single error
// summarizing all violations.
func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
