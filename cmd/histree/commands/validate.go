package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/persist"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

// stdinPath reads the document from standard input.
const stdinPath = "-"

func newValidateCommand(global *GlobalOptions) *cobra.Command {
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <snapshot.json|snapshot.yaml|snapshot.gob|->",
		Short: "Check a saved snapshot document against the snapshot schema",
		Long: `Validate a document written by "histree snapshot --format json|yaml|gob".
YAML and gob documents are decoded and checked in their JSON form.
Use --schema to print the JSON schema itself.`,
		Example: `  histree validate snap.json
  histree snapshot -f json | histree validate -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if printSchema {
				_, err := out.Write(snapshot.SchemaJSON)

				return err
			}

			data, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			return reportValidation(out, args[0], snapshot.Validate(data), global.useColor(out))
		},
	}

	cmd.Flags().BoolVar(&printSchema, "schema", false, "print the snapshot JSON schema and exit")

	return cmd
}

// readDocument returns the JSON form of the document at path.
func readDocument(stdin io.Reader, path string) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}

		return data, nil
	}

	doc, err := persist.NewPersister[snapshot.Document](nil).Load(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	encodeErr := persist.NewJSONCodec().Encode(&buf, doc)
	if encodeErr != nil {
		return nil, fmt.Errorf("re-encode %s: %w", path, encodeErr)
	}

	return buf.Bytes(), nil
}

func reportValidation(w io.Writer, label string, err error, colored bool) error {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)

	if !colored {
		pass.DisableColor()
		fail.DisableColor()
	}

	if err == nil {
		pass.Fprintf(w, "valid: %s\n", label)

		return nil
	}

	var verr *snapshot.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	fail.Fprintf(w, "invalid: %s (%d problems)\n", label, len(verr.Problems))

	for _, problem := range verr.Problems {
		fmt.Fprintf(w, "  - %s\n", problem)
	}

	return err
}
