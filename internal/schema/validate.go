package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed records.cue
var recordsCUE string

// ValidateExport checks that data is an export document whose collections
// hold well-formed records. data must already be valid JSON.
func ValidateExport(data []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(recordsCUE, cue.Filename("records.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Export"))

	doc := ctx.CompileBytes(data, cue.Filename("import.json"))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("load document: %s", formatCUEError(err))
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("document does not match record schema: %s", formatCUEError(err))
	}
	return nil
}

// formatCUEError flattens a CUE error list to one line per error, capped at five.
func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	var msgs []string
	for i, e := range errs {
		if i == 5 {
			msgs = append(msgs, fmt.Sprintf("... and %d more", len(errs)-5))
			break
		}
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
