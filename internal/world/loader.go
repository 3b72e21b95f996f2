package world

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/settlements.schema.json
var settlementsSchema string

const settlementsSchemaURL = "settlements.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(settlementsSchemaURL, strings.NewReader(settlementsSchema)); err != nil {
		return nil, err
	}
	return c.Compile(settlementsSchemaURL)
})

// LoadSettlements reads a JSON array of settlement records from path.
func LoadSettlements(path string) ([]Settlement, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settlements: %w", err)
	}
	settlements, err := ParseSettlements(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return settlements, nil
}

// ParseSettlements validates raw against the settlement schema and decodes it.
// Records missing a name or population pass validation; the economic
// processor decides what to do with them.
func ParseSettlements(raw []byte) ([]Settlement, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile settlement schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode settlements: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate settlements: %w", err)
	}

	var settlements []Settlement
	if err := json.Unmarshal(raw, &settlements); err != nil {
		return nil, fmt.Errorf("decode settlements: %w", err)
	}
	return settlements, nil
}
