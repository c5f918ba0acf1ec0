package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractYAML []byte

// Contract is the validated API document and its JSON rendering.
type Contract struct {
	Doc  *openapi3.T
	JSON []byte
}

// LoadContract parses and validates the embedded API document.
func LoadContract(ctx context.Context) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate api contract: %w", err)
	}
	rendered, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render api contract: %w", err)
	}
	return &Contract{Doc: doc, JSON: rendered}, nil
}

// Schema returns a named component schema, or nil.
func (c *Contract) Schema(name string) *openapi3.Schema {
	if c == nil || c.Doc == nil {
		return nil
	}
	ref, ok := c.Doc.Components.Schemas[name]
	if !ok || ref == nil {
		return nil
	}
	return ref.Value
}
