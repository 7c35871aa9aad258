package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
)

// LoadCUE loads every record type declared under the `record` struct of the
// CUE package in dir:
//
//	record: User: {
//		fields: {
//			Id:     {type: "int"}
//			Name:   {type: "string", nullable: true, required: true}
//			Status: {type: "enum", values: ["Pending", "Active"]}
//		}
//	}
func LoadCUE(dir string) ([]RecordType, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileRecords(value)
}

// CompileCUE compiles record types from CUE source text.
func CompileCUE(src, filename string) ([]RecordType, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileRecords(value)
}

// RegisterAll adds every type to reg, stopping at the first failure.
func RegisterAll(reg *Registry, types []RecordType) ([]*RecordType, error) {
	out := make([]*RecordType, 0, len(types))
	for _, rt := range types {
		stored, err := reg.Register(rt)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func compileRecords(root cue.Value) ([]RecordType, error) {
	recordsVal := root.LookupPath(cue.ParsePath("record"))
	if !recordsVal.Exists() {
		return nil, &SchemaError{Field: "record", Message: "no record types declared", Pos: root.Pos()}
	}

	iter, err := recordsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var types []RecordType
	for iter.Next() {
		rt, err := compileRecord(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, nil
}

func compileRecord(name string, v cue.Value) (RecordType, error) {
	rt := RecordType{Name: name}

	if abstractVal := v.LookupPath(cue.ParsePath("abstract")); abstractVal.Exists() {
		abstract, err := abstractVal.Bool()
		if err != nil {
			return rt, formatCUEError(err)
		}
		rt.Abstract = abstract
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return rt, &SchemaError{Field: name + ".fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return rt, formatCUEError(err)
	}
	for iter.Next() {
		fd, err := compileField(name+"."+iter.Label(), iter.Label(), iter.Value())
		if err != nil {
			return rt, err
		}
		rt.Fields = append(rt.Fields, fd)
	}

	if err := rt.Validate(); err != nil {
		if se, ok := err.(*SchemaError); ok && !se.Pos.IsValid() {
			se.Pos = v.Pos()
		}
		return rt, err
	}
	return rt, nil
}

func compileField(path, name string, v cue.Value) (FieldDescriptor, error) {
	fd := FieldDescriptor{Name: name}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return fd, &SchemaError{Field: path, Message: "type is required", Pos: v.Pos()}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return fd, formatCUEError(err)
	}
	fd.Type, err = ParseFieldType(typeName)
	if err != nil {
		return fd, &SchemaError{Field: path, Message: err.Error(), Pos: typeVal.Pos()}
	}

	// Reference-like values admit null unless declared otherwise.
	fd.Nullable = fd.Type == TypeString
	if nullableVal := v.LookupPath(cue.ParsePath("nullable")); nullableVal.Exists() {
		if fd.Nullable, err = nullableVal.Bool(); err != nil {
			return fd, formatCUEError(err)
		}
	}
	if requiredVal := v.LookupPath(cue.ParsePath("required")); requiredVal.Exists() {
		if fd.Required, err = requiredVal.Bool(); err != nil {
			return fd, formatCUEError(err)
		}
	}

	if valuesVal := v.LookupPath(cue.ParsePath("values")); valuesVal.Exists() {
		list, err := valuesVal.List()
		if err != nil {
			return fd, formatCUEError(err)
		}
		for list.Next() {
			member, err := list.Value().String()
			if err != nil {
				return fd, formatCUEError(err)
			}
			fd.EnumValues = append(fd.EnumValues, member)
		}
	}
	return fd, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
