package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/action.schema.json
var actionSchemaJSON string

var compileActionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("action.schema.json", strings.NewReader(actionSchemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile("action.schema.json")
})

// ActionSchema returns the compiled action schema.
func ActionSchema() (*jsonschema.Schema, error) {
	return compileActionSchema()
}

// ParseAction validates raw JSON against the action schema before decoding it.
// Nothing is coerced: a payload that fails the schema is an error.
func ParseAction(raw []byte) (Action, error) {
	s, err := ActionSchema()
	if err != nil {
		return Action{}, fmt.Errorf("compile action schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return Action{}, fmt.Errorf("action schema: %w", err)
	}
	var a Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	return a, nil
}
