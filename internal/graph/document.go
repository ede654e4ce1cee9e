package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only document version this package reads.
const SupportedVersion = 1

// Document is the on-disk form of a graph as exported by the editor.
type Document struct {
	Version int    `json:"version,omitempty"`
	Name    string `json:"name,omitempty"`
	Graph
}

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes", "edges"],
  "additionalProperties": false,
  "properties": {
    "version": {"const": 1},
    "name": {"type": "string"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "properties": {"type": "object"},
          "position": {
            "type": "object",
            "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "sourceHandle", "target", "targetHandle"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string"},
          "source": {"type": "string", "minLength": 1},
          "sourceHandle": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "targetHandle": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("scriptgraph://document.schema.json", documentSchema)

// Parse decodes a JSON graph document and validates it against the
// document schema. It returns *ParseError for malformed input and
// *SchemaError for documents of the wrong shape.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}
	return parseJSON(data)
}

// LoadFile reads a graph document from path. Files ending in .yaml or
// .yml are decoded as YAML; everything else is treated as JSON.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (*Document, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Msg: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset), Err: err}
		}
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}
	normalizeProperties(&doc.Graph)
	return &doc, nil
}

// parseYAML converts a YAML document to JSON so both formats go through
// the same schema check.
func parseYAML(data []byte) (*Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("YAML document is not representable as JSON: %v", err), Err: err}
	}
	return parseJSON(b)
}

func validate(raw interface{}) error {
	err := schema.Validate(raw)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Msg: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &SchemaError{Location: leaf.InstanceLocation, Msg: leaf.Message}
}

// normalizeProperties turns json.Number literals into int64 when they are
// integral and float64 otherwise.
func normalizeProperties(g *Graph) {
	for i := range g.Nodes {
		for k, v := range g.Nodes[i].Properties {
			num, ok := v.(json.Number)
			if !ok {
				continue
			}
			if n, err := num.Int64(); err == nil {
				g.Nodes[i].Properties[k] = n
			} else if f, err := num.Float64(); err == nil {
				g.Nodes[i].Properties[k] = f
			}
		}
	}
}
