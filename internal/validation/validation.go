// Package validation checks documents against the embedded JSON Schemas before
// they are decoded: model manifests, model artifacts, scalers and request
// bodies.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Document names, one per embedded schema.
const (
	Entry    = "entry"
	Batch    = "batch"
	Streak   = "streak"
	Manifest = "manifest"
	Linear   = "linear"
	Tree     = "tree"
	Scaler   = "scaler"
)

const schemaBase = "https://furlong.local/schemas/"

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrInvalidDocument is matched by every *Error.
var ErrInvalidDocument = errors.New("invalid document")

// Error lists every schema violation found in one document.
type Error struct {
	Document string
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Document, ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrInvalidDocument) hold.
func (e *Error) Is(target error) bool { return target == ErrInvalidDocument }

// printer formats schema error messages.
var printer = message.NewPrinter(language.English)

var compiled = mustCompile()

func mustCompile() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		panic(fmt.Sprintf("reading embedded schemas: %v", err))
	}
	var names []string
	for _, e := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("reading %s: %v", e.Name(), err))
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			panic(fmt.Sprintf("failed to parse embedded %s: %v", e.Name(), err))
		}
		if err := compiler.AddResource(schemaBase+e.Name(), doc); err != nil {
			panic(fmt.Sprintf("failed to add %s resource: %v", e.Name(), err))
		}
		names = append(names, e.Name())
	}

	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		sch, err := compiler.Compile(schemaBase + name)
		if err != nil {
			panic(fmt.Sprintf("failed to compile %s: %v", name, err))
		}
		out[strings.TrimSuffix(name, ".schema.json")] = sch
	}
	return out
}

// JSON validates a JSON document against the named schema.
func JSON(document string, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &Error{Document: document, Problems: []string{fmt.Sprintf("JSON parse error: %v", err)}}
	}
	return Value(document, inst)
}

// YAML validates a YAML document against the named schema.
func YAML(document string, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &Error{Document: document, Problems: []string{fmt.Sprintf("YAML parse error: %v", err)}}
	}
	return Value(document, doc)
}

// Value validates an already decoded JSON-compatible value.
func Value(document string, inst any) error {
	sch, ok := compiled[document]
	if !ok {
		return fmt.Errorf("validation: unknown document %q", document)
	}
	err := sch.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Document: document, Problems: []string{fmt.Sprintf("schema: %v", err)}}
	}
	out := &Error{Document: document}
	collect(ve, &out.Problems)
	return out
}

func collect(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, problems)
	}
}
