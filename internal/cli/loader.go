package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dynquery/internal/builder"
	"github.com/roach88/dynquery/internal/param"
	"github.com/roach88/dynquery/internal/schema"
)

// LoadError represents an error during loading with position info.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed or unreadable input
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Record type definitions rejected
	ErrCodeWriteFailed = "E007" // File write error

	// Query build errors
	ErrCodeUnknownRecord  = "E101" // Request names an unregistered record type
	ErrCodeInvalidOp      = "E102" // Operator not valid for the field
	ErrCodeConversion     = "E103" // Value cannot be converted to the field type
	ErrCodeUnknownFields  = "E104" // Projection names fields the record lacks
	ErrCodeNoConstructor  = "E105" // Result shape cannot be instantiated
	ErrCodeNoCompatible   = "E106" // No projection field binds to the result shape
	ErrCodeInvalidRequest = "E110" // Request document does not decode
	ErrCodeUnsupported    = "E199" // Operator or mode outside the declared set
)

// LoadSchema compiles the CUE record types in dir into a new registry.
func LoadSchema(dir string) (*schema.Registry, error) {
	if dir == "" {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "no schema directory given (use --schema or DYNQUERY_SCHEMA)"}
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("reading %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue files found in %s", dir)}
	}

	types, err := schema.LoadCUE(dir)
	if err != nil {
		return nil, schemaLoadError(err)
	}
	reg := schema.NewRegistry()
	if _, err := schema.RegisterAll(reg, types); err != nil {
		return nil, schemaLoadError(err)
	}
	return reg, nil
}

func schemaLoadError(err error) *LoadError {
	var se *schema.SchemaError
	if errors.As(err, &se) {
		return &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("%s: %s", se.Field, se.Message), Pos: se.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// LoadRequest reads a query request from a YAML or JSON file. A path of
// "-" reads stdin.
func LoadRequest(path string, stdin io.Reader) (builder.Request, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return builder.Request{}, err
	}
	var req builder.Request
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return builder.Request{}, &LoadError{Code: ErrCodeInvalidRequest, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if req.Record == "" {
		return builder.Request{}, &LoadError{Code: ErrCodeInvalidRequest, Message: fmt.Sprintf("%s: record is required", path)}
	}
	return req, nil
}

// LoadDataset reads records keyed by record type name:
//
//	User:
//	  - {Id: 1, Name: Ann, Code: null}
func LoadDataset(path string) (map[string][]map[string]any, error) {
	data, err := readInput(path, nil)
	if err != nil {
		return nil, err
	}
	records := map[string][]map[string]any{}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return records, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" && stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading stdin: %v", err)}
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return data, nil
}

// MapBuildErrorToCode maps an error from the query builder to an error code.
func MapBuildErrorToCode(err error) string {
	var (
		noRecord  *builder.UnknownRecordError
		invalidOp *builder.InvalidOperatorError
		conv      *param.TypeConversionError
		unknown   *builder.UnknownFieldsError
		noCtor    *builder.NoDefaultConstructorError
		noCompat  *builder.NoCompatibleFieldsError
		loadErr   *LoadError
	)
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case builder.IsFatal(err):
		return ErrCodeUnsupported
	case errors.As(err, &noRecord):
		return ErrCodeUnknownRecord
	case errors.As(err, &invalidOp):
		return ErrCodeInvalidOp
	case errors.As(err, &conv):
		return ErrCodeConversion
	case errors.As(err, &unknown):
		return ErrCodeUnknownFields
	case errors.As(err, &noCtor):
		return ErrCodeNoConstructor
	case errors.As(err, &noCompat):
		return ErrCodeNoCompatible
	default:
		return ErrCodeGeneric
	}
}

// loadFailure converts a loader error into the command's exit error,
// reporting it through the formatter first.
func loadFailure(f *OutputFormatter, err error) error {
	code := MapBuildErrorToCode(err)
	_ = f.Error(code, err.Error(), nil)
	return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("%s: %s", code, err.Error())}
}
