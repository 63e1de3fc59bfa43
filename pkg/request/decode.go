package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
	"github.com/ohler55/ojg/jp"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var errEmptyBody = errors.New("empty body")

// DecodeJSON parses the body as JSON into v, which must be a pointer.
func (s *Snapshot) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(s.Body)) == 0 {
		return &DecodeError{Format: FormatJSON, Err: errEmptyBody}
	}
	if err := jsonAPI.Unmarshal(s.Body, v); err != nil {
		return &DecodeError{Format: FormatJSON, Err: err}
	}
	return nil
}

// DecodeJSON parses the body of s as JSON into a new T.
func DecodeJSON[T any](s *Snapshot) (T, error) {
	var v T
	if err := s.DecodeJSON(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// DecodeYAML parses the body of s as YAML into a new T.
func DecodeYAML[T any](s *Snapshot) (T, error) {
	var v T
	if err := yaml.Unmarshal(s.Body, &v); err != nil {
		var zero T
		return zero, &DecodeError{Format: FormatYAML, Err: err}
	}
	return v, nil
}

// DecodeXML parses the body of s as an XML document.
func DecodeXML(s *Snapshot) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(s.Body); err != nil {
		return nil, &DecodeError{Format: FormatXML, Err: err}
	}
	if doc.Root() == nil {
		return nil, &DecodeError{Format: FormatXML, Err: errors.New("document has no root element")}
	}
	return doc, nil
}

// CompileSchema compiles a JSON Schema (draft 2020-12) given as a JSON document.
func CompileSchema(schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile("schema.json")
}

// DecodeJSONSchema validates the JSON body of s against schema and then
// decodes it into a new T.
func DecodeJSONSchema[T any](s *Snapshot, schema *jsonschema.Schema) (T, error) {
	var zero T
	var doc any
	if err := s.DecodeJSON(&doc); err != nil {
		return zero, err
	}
	if err := schema.Validate(doc); err != nil {
		return zero, &DecodeError{Format: FormatJSONSchema, Err: err}
	}
	return DecodeJSON[T](s)
}

// QueryJSONPath evaluates a JSONPath expression against the JSON body of s
// and returns every matching value. No match is an empty result, not an error.
func QueryJSONPath(s *Snapshot, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, &DecodeError{Format: FormatJSONPath, Err: err}
	}
	var doc any
	if err := s.DecodeJSON(&doc); err != nil {
		return nil, err
	}
	return x.Get(doc), nil
}
