package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dynquery/internal/schema"
	"github.com/roach88/dynquery/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	JSONSchema bool // print each type's JSON Schema
	FromDB     bool // read the catalog of the SQLite database instead of --schema
}

// FieldView describes one field for output.
type FieldView struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Nullable bool     `json:"nullable,omitempty"`
	Required bool     `json:"required,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// RecordView describes one record type for output.
type RecordView struct {
	Name   string         `json:"name"`
	Fields []FieldView    `json:"fields"`
	Schema map[string]any `json:"json_schema,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [record...]",
		Short: "List record types",
		Long: `List the record types defined in the CUE schema directory, or with
--from-db those recorded in a SQLite database's catalog.

Examples:
  dynquery schema --schema ./schema
  dynquery schema --schema ./schema --json-schema User
  dynquery schema --from-db --db ./users.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONSchema, "json-schema", false, "include the JSON Schema of each type")
	cmd.Flags().BoolVar(&opts.FromDB, "from-db", false, "read record types from the SQLite catalog (--db)")

	return cmd
}

func runSchema(opts *SchemaOptions, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	types, err := schemaTypes(cmd.Context(), opts, formatter)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %d record type(s)", len(types))

	if len(names) > 0 {
		byName := make(map[string]*schema.RecordType, len(types))
		for _, rt := range types {
			byName[rt.Name] = rt
		}
		selected := make([]*schema.RecordType, 0, len(names))
		for _, name := range names {
			rt, ok := byName[name]
			if !ok {
				_ = formatter.Error(ErrCodeUnknownRecord, fmt.Sprintf("unknown record type %q", name), nil)
				return NewExitError(ExitFailure, fmt.Sprintf("%s: unknown record type %q", ErrCodeUnknownRecord, name))
			}
			selected = append(selected, rt)
		}
		types = selected
	}

	views := make([]RecordView, len(types))
	for i, rt := range types {
		views[i] = recordView(rt, opts.JSONSchema)
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	writeSchemaText(formatter, views)
	return nil
}

func schemaTypes(ctx context.Context, opts *SchemaOptions, formatter *OutputFormatter) ([]*schema.RecordType, error) {
	if !opts.FromDB {
		reg, err := LoadSchema(opts.Schema)
		if err != nil {
			return nil, loadFailure(formatter, err)
		}
		return reg.Types(), nil
	}

	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "--from-db needs a database path (use --db or DYNQUERY_DATABASE)")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(opts.Database, store.WithLogger(opts.logger()))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	catalog, err := st.Catalog(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read catalog", err)
	}
	types := make([]*schema.RecordType, len(catalog))
	for i := range catalog {
		types[i] = &catalog[i]
	}
	return types, nil
}

func recordView(rt *schema.RecordType, withJSONSchema bool) RecordView {
	view := RecordView{Name: rt.Name, Fields: make([]FieldView, len(rt.Fields))}
	for i, f := range rt.Fields {
		view.Fields[i] = FieldView{
			Name:     f.Name,
			Type:     string(f.Type),
			Nullable: f.Nullable,
			Required: f.Required,
			Values:   f.EnumValues,
		}
	}
	if withJSONSchema {
		view.Schema = schema.JSONSchema(rt)
	}
	return view
}

func writeSchemaText(f *OutputFormatter, views []RecordView) {
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		fmt.Fprintln(f.Writer, v.Name)
		for _, fv := range v.Fields {
			line := fmt.Sprintf("  %-12s %s", fv.Name, fv.Type)
			if len(fv.Values) > 0 {
				line += "(" + strings.Join(fv.Values, "|") + ")"
			}
			if fv.Nullable {
				line += " nullable"
			}
			if fv.Required {
				line += " required"
			}
			fmt.Fprintln(f.Writer, line)
		}
		if v.Schema != nil {
			if doc, err := json.MarshalIndent(v.Schema, "  ", "  "); err == nil {
				fmt.Fprintf(f.Writer, "  %s\n", doc)
			}
		}
	}
}
