package document

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed world_schema.json
var worldSchemaSource string

var worldSchema = jsonschema.MustCompileString("world_schema.json", worldSchemaSource)

// ValidateWorld checks the top-level shape of a world document: `properties`
// must be a mapping, `layers` a sequence, and `models` (optional) a sequence.
// Entry-level fields are validated by the loaders, which produce more precise
// diagnostics than the schema can.
func ValidateWorld(doc *Node) error {
	var v interface{}
	if err := doc.raw.Decode(&v); err != nil {
		return &ConfigError{Msg: fmt.Sprintf("error decoding %q", doc.file), Err: err}
	}
	// Round-trip through encoding/json so the instance carries JSON types;
	// the yaml decoder hands back Go ints which the validator rejects.
	buf, err := json.Marshal(v)
	if err != nil {
		return &ConfigError{Msg: fmt.Sprintf("world document %q is not schema-checkable", doc.file), Err: err}
	}
	var inst interface{}
	if err := json.Unmarshal(buf, &inst); err != nil {
		return &ConfigError{Msg: fmt.Sprintf("world document %q is not schema-checkable", doc.file), Err: err}
	}
	if err := worldSchema.Validate(inst); err != nil {
		return &ConfigError{Msg: fmt.Sprintf("invalid world document %q", doc.file), Err: err}
	}
	return nil
}
