package config

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError is a single schema violation with its field path.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config against the embedded CUE schema.
// Returns one ValidationError per violation; empty means valid.
func (c *Config) Validate() []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; a compile failure is a programming error.
		return []ValidationError{{Field: "schema", Message: err.Error()}}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return []ValidationError{{Field: "schema", Message: "#Config definition missing"}}
	}

	unified := def.Unify(ctx.Encode(c))
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		path := strings.Join(e.Path(), ".")
		out = append(out, ValidationError{
			Field:   path,
			Message: cleanCUEMessage(e.Error(), path),
		})
	}
	return out
}

// cleanCUEMessage strips the repeated field path CUE prefixes messages with.
func cleanCUEMessage(msg, path string) string {
	if path != "" && strings.HasPrefix(msg, path+": ") {
		return strings.TrimPrefix(msg, path+": ")
	}
	return msg
}

// joinValidationErrors folds schema violations into one error value.
func joinValidationErrors(errs []ValidationError) error {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// newStrictDecoder builds a YAML decoder that rejects unknown fields,
// catching config typos (e.g. "step:" instead of "steps:") early.
func newStrictDecoder(r io.Reader) *yaml.Decoder {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	return d
}
