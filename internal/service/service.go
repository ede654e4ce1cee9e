// Package service runs compile requests on behalf of the HTTP API and the
// message bus worker, wrapping the compiler with request ids, events and
// metrics.
package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/compiler"
	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
	"github.com/AaronLay10/ScriptGraph/internal/metrics"
)

// Transports, used as the metrics label and in event fields.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
	TransportCLI  = "cli"
)

// ErrDocumentTooLarge is returned for graph documents over the size limit.
var ErrDocumentTooLarge = errors.New("graph document too large")

// Request asks for one graph to be compiled. Graph holds a graph document
// in its JSON form.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Entries []string        `json:"entries,omitempty"`
	Graph   json.RawMessage `json:"graph"`
}

// Response carries the compiled code and diagnostics. Error is set instead
// when the document itself was rejected.
type Response struct {
	ID          string                `json:"id"`
	Code        string                `json:"code"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics"`
	Error       string                `json:"error,omitempty"`
	DurationMS  float64               `json:"duration_ms"`
}

// HasErrors reports whether the request failed or produced error diagnostics.
func (r *Response) HasErrors() bool {
	return r.Error != "" || compiler.HasErrors(r.Diagnostics)
}

// Service is safe for concurrent use.
type Service struct {
	compiler *compiler.Compiler
	maxBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithMaxDocumentBytes limits the size of accepted graph documents.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithCatalog compiles against cat instead of the built-in catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(s *Service) { s.compiler = compiler.New(cat) }
}

func New(opts ...Option) *Service {
	s := &Service{compiler: compiler.New(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog requests are compiled against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.compiler.Catalog()
}

// Compile parses and compiles one request. It never returns an error:
// rejected documents are reported in Response.Error.
func (s *Service) Compile(ctx context.Context, transport string, req Request) Response {
	start := time.Now()
	id := req.ID
	if id == "" {
		id = NewRequestID()
	}

	events.Emit("info", "compile.requested", "", map[string]interface{}{
		"request_id": id,
		"transport":  transport,
		"bytes":      len(req.Graph),
	})

	resp := Response{ID: id, Diagnostics: []compiler.Diagnostic{}}

	doc, err := s.parse(req.Graph)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		resp.Error = err.Error()
		resp.DurationMS = msSince(start)
		metrics.ObserveCompile(transport, metrics.ResultRejected, time.Since(start))
		events.Emit("warn", "compile.completed", "request rejected", map[string]interface{}{
			"request_id": id,
			"transport":  transport,
			"error":      err.Error(),
		})
		return resp
	}

	result := s.compiler.Compile(&doc.Graph, req.Entries...)
	elapsed := time.Since(start)

	resp.Code = result.Code
	resp.Diagnostics = result.Diagnostics
	resp.DurationMS = msSince(start)

	s.record(id, transport, doc.Name, result, elapsed)
	return resp
}

// CompileDocument compiles an already parsed document. Used by the CLI.
func (s *Service) CompileDocument(doc *graph.Document, entries ...string) *compiler.Result {
	start := time.Now()
	result := s.compiler.Compile(&doc.Graph, entries...)
	s.record(NewRequestID(), TransportCLI, doc.Name, result, time.Since(start))
	return result
}

func (s *Service) record(id, transport, name string, result *compiler.Result, elapsed time.Duration) {
	errCount := compiler.Count(result.Diagnostics, compiler.SeverityError)
	warnCount := compiler.Count(result.Diagnostics, compiler.SeverityWarning)

	outcome := metrics.ResultOK
	level := "info"
	if errCount > 0 {
		outcome = metrics.ResultErrors
		level = "warn"
	}
	metrics.ObserveCompile(transport, outcome, elapsed)
	metrics.ObserveDiagnostics(string(compiler.SeverityError), errCount)
	metrics.ObserveDiagnostics(string(compiler.SeverityWarning), warnCount)

	for _, d := range result.Diagnostics {
		events.Emit(diagnosticLevel(d.Severity), "compile.diagnostic", d.Message, map[string]interface{}{
			"request_id": id,
			"node_id":    d.NodeID,
			"severity":   string(d.Severity),
		})
	}

	fields := map[string]interface{}{
		"request_id":  id,
		"transport":   transport,
		"errors":      errCount,
		"warnings":    warnCount,
		"code_bytes":  len(result.Code),
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	}
	if name != "" {
		fields["graph"] = name
	}
	events.Emit(level, "compile.completed", "", fields)
}

func (s *Service) parse(data []byte) (*graph.Document, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrDocumentTooLarge, len(data), s.maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &graph.ParseError{Msg: "missing graph document"}
	}
	return graph.Parse(bytes.NewReader(data))
}

func diagnosticLevel(sev compiler.Severity) string {
	if sev == compiler.SeverityError {
		return "error"
	}
	return "warn"
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

// NewRequestID returns a random 16 character hex id.
func NewRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
