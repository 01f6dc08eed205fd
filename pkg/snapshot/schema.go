package snapshot

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaJSON is the JSON schema of an encoded Document.
//
//go:embed schema.json
var SchemaJSON []byte

// ErrInvalidDocument is wrapped by ValidationError.
var ErrInvalidDocument = errors.New("invalid snapshot document")

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// Validate checks JSON data against SchemaJSON. It returns a *ValidationError
// when the document is well-formed JSON but violates the schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(SchemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.String())
	}

	return &ValidationError{Problems: problems}
}
