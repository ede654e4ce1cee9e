package compiler

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

func node(id, typ string, props map[string]interface{}) graph.Node {
	return graph.Node{ID: id, Type: typ, Properties: props}
}

func edge(source, sourceHandle, target, targetHandle string) graph.Edge {
	return graph.Edge{Source: source, SourceHandle: sourceHandle, Target: target, TargetHandle: targetHandle}
}

func flow(source, target string) graph.Edge {
	return edge(source, "exec", target, "exec")
}

func props(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func hasDiagnostic(diags []Diagnostic, nodeID string, sev Severity, substr string) bool {
	for _, d := range diags {
		if d.NodeID == nodeID && d.Severity == sev && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func TestResolveInputs_LiteralIsQuoted(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		node("msg", "showMessage", props("message", "hello there")),
	}}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("msg"), 0)

	if got, want := in["message"], `"hello there"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if len(ctx.Diagnostics()) != 0 {
		t.Errorf("expected no diagnostics, got %v", ctx.Diagnostics())
	}
}

func TestResolveInputs_EdgeWinsOverLiteral(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("msg", "showMessage", props("message", "literal")),
			node("greeting", "text", props("value", "from edge")),
		},
		Edges: []graph.Edge{edge("greeting", "value", "msg", "message")},
	}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("msg"), 0)

	if got, want := in["message"], `"from edge"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestResolveInputs_NonStringLiterals(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		node("snd", "playSound", props("url", "door.mp3", "volume", 0.5)),
		node("set", "setVariable", props("name", "open", "value", true)),
	}}
	ctx := NewContext(nil, g)

	snd := ctx.ResolveInputs(ctx.Node("snd"), 0)
	if snd["volume"] != "0.5" {
		t.Errorf("expected volume 0.5, got %s", snd["volume"])
	}
	set := ctx.ResolveInputs(ctx.Node("set"), 0)
	if set["value"] != "true" {
		t.Errorf("expected value true, got %s", set["value"])
	}
}

func TestResolveInputs_DefaultForOptionalPort(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		node("snd", "playSound", props("url", "door.mp3")),
	}}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("snd"), 0)
	if in["volume"] != "1" {
		t.Errorf("expected default volume 1, got %q", in["volume"])
	}
}

func TestResolveInputs_AmbiguousInputWarns(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("msg", "showMessage", nil),
			node("first", "text", props("value", "one")),
			node("second", "text", props("value", "two")),
		},
		Edges: []graph.Edge{
			edge("first", "value", "msg", "message"),
			edge("second", "value", "msg", "message"),
		},
	}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("msg"), 0)

	if in["message"] != `"one"` {
		t.Errorf("expected first connection to win, got %s", in["message"])
	}
	if !hasDiagnostic(ctx.Diagnostics(), "msg", SeverityWarning, "2 incoming connections") {
		t.Errorf("expected ambiguous input warning, got %v", ctx.Diagnostics())
	}
}

func TestResolveInputs_DanglingSource(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{node("msg", "showMessage", props("message", "ignored"))},
		Edges: []graph.Edge{edge("ghost", "value", "msg", "message")},
	}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("msg"), 0)

	if in.Has("message") {
		t.Errorf("expected message to stay unresolved, got %s", in["message"])
	}
	if !hasDiagnostic(ctx.Diagnostics(), "msg", SeverityError, "missing node ghost") {
		t.Errorf("expected dangling edge error, got %v", ctx.Diagnostics())
	}
}

func TestResolveInputs_FanOut(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("score", "getVariable", props("name", "score")),
			node("a", "showMessage", nil),
			node("b", "setVariable", props("name", "copy")),
		},
		Edges: []graph.Edge{
			edge("score", "value", "a", "message"),
			edge("score", "value", "b", "value"),
		},
	}
	ctx := NewContext(nil, g)

	a := ctx.ResolveInputs(ctx.Node("a"), 0)
	b := ctx.ResolveInputs(ctx.Node("b"), 0)

	want := `getVariable("score")`
	if a["message"] != want || b["value"] != want {
		t.Errorf("expected both consumers to get %s, got %s and %s", want, a["message"], b["value"])
	}
}

func TestCompileOutput_FlowNodeHasNoValue(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{node("go", "navigate", props("target", "card2"))}}
	ctx := NewContext(nil, g)

	if got := ctx.CompileOutput(ctx.Node("go"), "exec", 0); got != "" {
		t.Errorf("expected empty output for flow node, got %q", got)
	}
}

func TestCompileOutput_NestedExpressions(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("two", "number", props("value", 2)),
			node("sum", "add", props("b", 3)),
			node("cmp", "compare", props("operator", ">", "b", 4)),
		},
		Edges: []graph.Edge{
			edge("two", "value", "sum", "a"),
			edge("sum", "value", "cmp", "a"),
		},
	}
	ctx := NewContext(nil, g)

	if got, want := ctx.CompileOutput(ctx.Node("cmp"), "value", 0), "((2 + 3) > 4)"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestGenerate_BranchWithoutElse(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("check", "if", props("condition", "x > 0")),
			node("assign", "script", props("code", "y = 1;")),
		},
		Edges: []graph.Edge{edge("check", "true", "assign", "exec")},
	}
	ctx := NewContext(nil, g)

	got := ctx.Generate("check")

	if want := "if (x > 0) {\n  y = 1;\n}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerate_BranchWithElse(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("check", "if", nil),
			node("yes", "script", props("code", "a();")),
			node("no", "script", props("code", "b();")),
			node("after", "script", props("code", "c();")),
		},
		Edges: []graph.Edge{
			edge("check", "true", "yes", "exec"),
			edge("check", "false", "no", "exec"),
			flow("no", "after"),
		},
	}
	ctx := NewContext(nil, g)

	got := ctx.Generate("check")

	want := "if (true) {\n  a();\n} else {\n  b();\n  c();\n}"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("generated code mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_NestedBranchesIndent(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("outer", "if", props("condition", "a")),
			node("inner", "if", props("condition", "b")),
			node("leaf", "script", props("code", "z();")),
		},
		Edges: []graph.Edge{
			edge("outer", "true", "inner", "exec"),
			edge("inner", "true", "leaf", "exec"),
		},
	}
	ctx := NewContext(nil, g)

	want := "if (a) {\n  if (b) {\n    z();\n  }\n}"
	if diff := cmp.Diff(want, ctx.Generate("outer")); diff != "" {
		t.Errorf("generated code mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_MissingRequiredInput(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{node("go", "navigate", nil)}}
	ctx := NewContext(nil, g)

	got := ctx.Generate("go")

	if got != `navigateTo("");` {
		t.Errorf("expected fallback literal, got %q", got)
	}
	if !hasDiagnostic(ctx.Diagnostics(), "go", SeverityError, `required input "target"`) {
		t.Errorf("expected missing input error, got %v", ctx.Diagnostics())
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("s", "start", nil),
			node("check", "if", props("condition", "ready")),
			node("go", "navigate", nil),
			node("msg", "showMessage", props("message", "wait")),
		},
		Edges: []graph.Edge{
			flow("s", "check"),
			edge("check", "true", "go", "exec"),
			edge("check", "false", "msg", "exec"),
		},
	}
	ctx := NewContext(nil, g)

	first := ctx.Generate("s")
	firstDiags := ctx.Diagnostics()
	second := ctx.Generate("s")
	secondDiags := ctx.Diagnostics()[len(firstDiags):]

	if first != second {
		t.Errorf("outputs differ:\n%s\n---\n%s", first, second)
	}
	if diff := cmp.Diff(firstDiags, secondDiags); diff != "" {
		t.Errorf("diagnostics differ (-first +second):\n%s", diff)
	}
	if len(firstDiags) == 0 {
		t.Error("expected the missing target to be reported")
	}
}

func TestGenerate_FlowCycleTerminates(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("a", "script", props("code", "a();")),
			node("b", "script", props("code", "b();")),
		},
		Edges: []graph.Edge{flow("a", "b"), flow("b", "a")},
	}
	ctx := NewContext(nil, g)

	got := ctx.Generate("a")

	if !strings.HasPrefix(got, "a();\nb();\na();") {
		t.Errorf("expected partial output, got %q", got[:min(len(got), 40)])
	}
	if !hasDiagnostic(ctx.Diagnostics(), "a", SeverityError, "maximum nesting depth exceeded") &&
		!hasDiagnostic(ctx.Diagnostics(), "b", SeverityError, "maximum nesting depth exceeded") {
		t.Errorf("expected depth exceeded error, got %v", ctx.Diagnostics())
	}
}

func TestGenerate_BranchingCycleTerminates(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{node("loop", "if", props("condition", "again"))},
		Edges: []graph.Edge{
			edge("loop", "true", "loop", "exec"),
			edge("loop", "false", "loop", "exec"),
		},
	}
	ctx := NewContext(nil, g)

	got := ctx.Generate("loop")

	if !strings.HasPrefix(got, "if (again) {") {
		t.Errorf("unexpected output start: %q", got[:min(len(got), 40)])
	}
	if n := Count(ctx.Diagnostics(), SeverityError); n != 1 {
		t.Errorf("expected exactly one depth error, got %d: %v", n, ctx.Diagnostics())
	}
}

func TestGenerate_UnknownEntry(t *testing.T) {
	ctx := NewContext(nil, &graph.Graph{})

	if got := ctx.Generate("nope"); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if !hasDiagnostic(ctx.Diagnostics(), "nope", SeverityError, "does not exist") {
		t.Errorf("expected missing entry error, got %v", ctx.Diagnostics())
	}
}

func TestGenerate_ExpressionNodeIsNotExecutable(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{node("n", "number", props("value", 1))}}
	ctx := NewContext(nil, g)

	if got := ctx.Generate("n"); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if !hasDiagnostic(ctx.Diagnostics(), "n", SeverityError, "cannot be executed") {
		t.Errorf("expected error, got %v", ctx.Diagnostics())
	}
}

// selfFeedingGraph wires an add node into its own first input and feeds
// the result to a message.
func selfFeedingGraph(extra ...graph.Node) *graph.Graph {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("msg", "showMessage", nil),
			node("x", "add", nil),
		},
		Edges: []graph.Edge{
			edge("x", "value", "x", "a"),
			edge("x", "value", "msg", "message"),
		},
	}
	g.Nodes = append(g.Nodes, extra...)
	return g
}

func TestResolveInputs_IdempotentAfterOverflow(t *testing.T) {
	ctx := NewContext(nil, selfFeedingGraph())
	msg := ctx.Node("msg")

	first := ctx.ResolveInputs(msg, 0)
	firstDiags := ctx.Diagnostics()
	second := ctx.ResolveInputs(msg, 0)
	secondDiags := ctx.Diagnostics()[len(firstDiags):]

	if first["message"] == "" {
		t.Fatal("expected a partial expression for the cyclic input")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("inputs differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstDiags, secondDiags); diff != "" {
		t.Errorf("diagnostics differ (-first +second):\n%s", diff)
	}
	if !hasDiagnostic(secondDiags, "x", SeverityError, "maximum nesting depth exceeded") {
		t.Errorf("expected the overflow to be reported again, got %v", secondDiags)
	}
}

func TestCompileOutput_IdempotentAfterOverflow(t *testing.T) {
	ctx := NewContext(nil, selfFeedingGraph())
	x := ctx.Node("x")

	first := ctx.CompileOutput(x, "value", 0)
	n := len(ctx.Diagnostics())
	second := ctx.CompileOutput(x, "value", 0)

	if first == "" || first != second {
		t.Errorf("expected identical non-empty output, got %d and %d bytes", len(first), len(second))
	}
	if got := len(ctx.Diagnostics()) - n; got != n {
		t.Errorf("second call recorded %d diagnostics, first recorded %d", got, n)
	}
}

func TestGenerate_StatementsAfterDataCycleSurvive(t *testing.T) {
	g := selfFeedingGraph(
		node("s", "start", nil),
		node("after", "script", props("code", "done();")),
	)
	g.Edges = append(g.Edges, flow("s", "msg"), flow("msg", "after"))
	ctx := NewContext(nil, g)

	got := ctx.Generate("s")

	if !strings.HasPrefix(got, "showMessage(") {
		t.Errorf("expected the message call first, got %q", got[:min(len(got), 40)])
	}
	if !strings.HasSuffix(got, "\ndone();") {
		t.Errorf("expected the statement after the cycle, got tail %q", got[max(0, len(got)-40):])
	}
	if n := Count(ctx.Diagnostics(), SeverityError); n != 1 {
		t.Errorf("expected one depth error, got %d: %v", n, ctx.Diagnostics())
	}
}

func TestResolveInputs_OverflowStaysInItsPort(t *testing.T) {
	g := selfFeedingGraph(node("y", "number", props("value", 7)))
	g.Nodes[0] = node("sum", "add", nil)
	g.Edges = []graph.Edge{
		edge("x", "value", "x", "a"),
		edge("x", "value", "sum", "a"),
		edge("y", "value", "sum", "b"),
	}
	ctx := NewContext(nil, g)

	in := ctx.ResolveInputs(ctx.Node("sum"), 0)

	if got := in["b"]; got != "7" {
		t.Errorf("expected the second input to resolve, got %q", got)
	}
}

// diamondChain builds n add nodes where each takes both inputs from the
// one before it.
func diamondChain(n int) *graph.Graph {
	g := &graph.Graph{Nodes: []graph.Node{
		node("s", "start", nil),
		node("msg", "showMessage", nil),
		node("n0", "number", props("value", 1)),
	}}
	g.Edges = append(g.Edges, flow("s", "msg"))
	prev := "n0"
	for i := 1; i <= n; i++ {
		id := "n" + strconv.Itoa(i)
		g.Nodes = append(g.Nodes, node(id, "add", nil))
		g.Edges = append(g.Edges, edge(prev, "value", id, "a"), edge(prev, "value", id, "b"))
		prev = id
	}
	g.Edges = append(g.Edges, edge(prev, "value", "msg", "message"))
	return g
}

func TestCompile_FanInIsBounded(t *testing.T) {
	res := New(nil).Compile(diamondChain(40))

	if len(res.Code) > MaxOutputBytes {
		t.Errorf("code is %d bytes, limit is %d", len(res.Code), MaxOutputBytes)
	}
	if n := Count(res.Diagnostics, SeverityError); n != 1 {
		t.Fatalf("expected one error, got %d: %v", n, res.Diagnostics)
	}
	found := false
	for _, d := range res.Diagnostics {
		if strings.Contains(d.Message, "expansion limit reached") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected expansion limit error, got %v", res.Diagnostics)
	}
}

func TestCompile_SmallFanInIsExpanded(t *testing.T) {
	res := New(nil).Compile(diamondChain(3))

	want := "showMessage((((1 + 1) + (1 + 1)) + ((1 + 1) + (1 + 1))));"
	if res.Code != want {
		t.Errorf("got %q, want %q", res.Code, want)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestGenerate_LimitsResetPerWalk(t *testing.T) {
	ctx := NewContext(nil, diamondChain(40))

	first := ctx.Generate("s")
	n := len(ctx.Diagnostics())
	second := ctx.Generate("s")

	if first != second {
		t.Errorf("outputs differ: %d and %d bytes", len(first), len(second))
	}
	if got := len(ctx.Diagnostics()) - n; got != n {
		t.Errorf("second walk recorded %d diagnostics, first recorded %d", got, n)
	}
}
