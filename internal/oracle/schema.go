package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const allocationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["epoch", "allocations"],
  "properties": {
    "epoch": {"type": "integer", "minimum": 1},
    "allocations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["owner", "yield"],
        "properties": {
          "owner": {"type": "string", "minLength": 1},
          "yield": {"type": "integer", "minimum": 0}
        },
        "additionalProperties": false
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("allocations.schema.json", allocationSchema)

// payload is the wire shape served by allocation sources.
type payload struct {
	Epoch       uint64       `json:"epoch"`
	Allocations []Allocation `json:"allocations"`
}

// Decode validates an allocation document and returns its entries. The
// document must be for the requested epoch and name each owner once.
func Decode(data []byte, epoch uint64) ([]Allocation, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode allocations: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate allocations: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode allocations: %w", err)
	}
	if p.Epoch != epoch {
		return nil, fmt.Errorf("allocations are for epoch %d, want %d", p.Epoch, epoch)
	}
	seen := make(map[string]bool, len(p.Allocations))
	for _, a := range p.Allocations {
		if seen[a.Owner] {
			return nil, fmt.Errorf("duplicate allocation for %s", a.Owner)
		}
		seen[a.Owner] = true
	}
	return p.Allocations, nil
}
