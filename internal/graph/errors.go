package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrParse indicates a document that is not well-formed JSON or YAML.
	ErrParse = errors.New("parse error")

	// ErrSchema indicates a well-formed document that does not match the graph schema.
	ErrSchema = errors.New("schema error")
)

// ParseError reports a document that could not be decoded.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrParse.Error()
	}
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// SchemaError reports the first schema violation found in a document.
// Location is a JSON pointer into the document ("/nodes/0/id").
type SchemaError struct {
	Location string
	Msg      string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	if e.Location != "" {
		return fmt.Sprintf("%s: %s: %s", ErrSchema.Error(), e.Location, e.Msg)
	}
	if e.Msg == "" {
		return ErrSchema.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSchema.Error(), e.Msg)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }
