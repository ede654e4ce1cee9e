package catalog

import (
	"fmt"

	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// Branch output port ids of the "if" node.
const (
	BranchTrue  = "true"
	BranchFalse = "false"

	// ConditionPort is the input of the "if" node holding the test expression.
	ConditionPort = "condition"
)

var defaultCatalog = MustNew(builtins()...)

// Default returns the built-in node catalog.
func Default() *Catalog {
	return defaultCatalog
}

func flowIn() Port  { return Port{ID: FlowPort, Name: "Exec", Kind: KindVoid} }
func flowOut() Port { return Port{ID: FlowPort, Name: "Then", Kind: KindVoid} }

func data(id, name string) Port     { return Port{ID: id, Name: name, Kind: KindData} }
func required(id, name string) Port { return Port{ID: id, Name: name, Kind: KindData, Required: true} }

func valueOut() []Port { return []Port{data("value", "Value")} }

// call renders a sandbox API call statement.
func call(fn string, ports ...string) CompileFunc {
	return func(_ *graph.Node, in Inputs) string {
		args := ""
		for i, p := range ports {
			if i > 0 {
				args += ", "
			}
			args += in.Get(p, `""`)
		}
		return fmt.Sprintf("%s(%s);", fn, args)
	}
}

func binary(op, fallback string) CompileFunc {
	return func(_ *graph.Node, in Inputs) string {
		return fmt.Sprintf("(%s %s %s)", in.Get("a", fallback), op, in.Get("b", fallback))
	}
}

func literal(fallback string) CompileFunc {
	return func(_ *graph.Node, in Inputs) string {
		return in.Get("value", fallback)
	}
}

// comparisonOperators lists the operators the compare node accepts.
var comparisonOperators = map[string]struct{}{
	"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
}

func builtins() []Definition {
	return []Definition{
		// events
		{
			Type:        "start",
			Category:    CategoryEvent,
			Description: "Runs when the card is opened",
			Outputs:     []Port{flowOut()},
			Compile:     func(*graph.Node, Inputs) string { return "" },
		},

		// actions
		{
			Type:        "navigate",
			Category:    CategoryAction,
			Description: "Moves the player to another card",
			Inputs:      []Port{flowIn(), required("target", "Card")},
			Outputs:     []Port{flowOut()},
			Compile:     call("navigateTo", "target"),
		},
		{
			Type:        "setVariable",
			Category:    CategoryAction,
			Description: "Stores a value in a story variable",
			Inputs:      []Port{flowIn(), required("name", "Name"), data("value", "Value")},
			Outputs:     []Port{flowOut()},
			Compile: func(_ *graph.Node, in Inputs) string {
				return fmt.Sprintf("setVariable(%s, %s);", in.Get("name", `""`), in.Get("value", "null"))
			},
		},
		{
			Type:        "showElement",
			Category:    CategoryAction,
			Description: "Makes a card element visible",
			Inputs:      []Port{flowIn(), required("element", "Element")},
			Outputs:     []Port{flowOut()},
			Compile:     call("showElement", "element"),
		},
		{
			Type:        "hideElement",
			Category:    CategoryAction,
			Description: "Hides a card element",
			Inputs:      []Port{flowIn(), required("element", "Element")},
			Outputs:     []Port{flowOut()},
			Compile:     call("hideElement", "element"),
		},
		{
			Type:        "showMessage",
			Category:    CategoryAction,
			Description: "Shows a message to the player",
			Inputs:      []Port{flowIn(), required("message", "Message")},
			Outputs:     []Port{flowOut()},
			Compile:     call("showMessage", "message"),
		},
		{
			Type:        "playSound",
			Category:    CategoryAction,
			Description: "Plays a sound asset",
			Inputs:      []Port{flowIn(), required("url", "Sound"), data("volume", "Volume")},
			Outputs:     []Port{flowOut()},
			Defaults:    map[string]interface{}{"volume": 1},
			Compile:     call("playSound", "url", "volume"),
		},
		{
			Type:        "script",
			Category:    CategoryAction,
			Description: "Inserts hand-written code",
			Inputs:      []Port{flowIn(), {ID: "code", Name: "Code", Kind: KindData, Required: true, Raw: true}},
			Outputs:     []Port{flowOut()},
			Compile: func(_ *graph.Node, in Inputs) string {
				return in.Get("code", "")
			},
		},

		// flow
		{
			Type:        "if",
			Category:    CategoryFlow,
			Description: "Runs one of two paths depending on a condition",
			Inputs:      []Port{flowIn(), {ID: ConditionPort, Name: "Condition", Kind: KindData, Raw: true}},
			Outputs: []Port{
				{ID: BranchTrue, Name: "True", Kind: KindVoid},
				{ID: BranchFalse, Name: "False", Kind: KindVoid},
			},
			// The generator renders the branch itself; this is the header only.
			Compile: func(_ *graph.Node, in Inputs) string {
				return fmt.Sprintf("if (%s)", in.Get(ConditionPort, "true"))
			},
		},

		// values
		{
			Type:     "number",
			Category: CategoryValue,
			Inputs:   []Port{data("value", "Value")},
			Outputs:  valueOut(),
			Defaults: map[string]interface{}{"value": 0},
			Compile:  literal("0"),
		},
		{
			Type:     "text",
			Category: CategoryValue,
			Inputs:   []Port{data("value", "Value")},
			Outputs:  valueOut(),
			Defaults: map[string]interface{}{"value": ""},
			Compile:  literal(`""`),
		},
		{
			Type:     "boolean",
			Category: CategoryValue,
			Inputs:   []Port{data("value", "Value")},
			Outputs:  valueOut(),
			Defaults: map[string]interface{}{"value": false},
			Compile:  literal("false"),
		},
		{
			Type:        "getVariable",
			Category:    CategoryVariable,
			Description: "Reads a story variable",
			Inputs:      []Port{required("name", "Name")},
			Outputs:     valueOut(),
			Compile: func(_ *graph.Node, in Inputs) string {
				return fmt.Sprintf("getVariable(%s)", in.Get("name", `""`))
			},
		},

		// math
		mathOp("add", "+"),
		mathOp("subtract", "-"),
		mathOp("multiply", "*"),
		mathOp("divide", "/"),
		{
			Type:     "random",
			Category: CategoryMath,
			Inputs:   []Port{data("min", "Min"), data("max", "Max")},
			Outputs:  valueOut(),
			Defaults: map[string]interface{}{"min": 0, "max": 1},
			Compile: func(_ *graph.Node, in Inputs) string {
				return fmt.Sprintf("randomInt(%s, %s)", in.Get("min", "0"), in.Get("max", "1"))
			},
		},

		// logic
		{
			Type:        "compare",
			Category:    CategoryLogic,
			Description: "Compares two values; the operator property picks ==, !=, <, <=, > or >=",
			Inputs:      []Port{data("a", "A"), data("b", "B")},
			Outputs:     valueOut(),
			Compile: func(n *graph.Node, in Inputs) string {
				op := n.StringProperty("operator", "==")
				if _, ok := comparisonOperators[op]; !ok {
					op = "=="
				}
				return fmt.Sprintf("(%s %s %s)", in.Get("a", "null"), op, in.Get("b", "null"))
			},
		},
		logicOp("and", "&&"),
		logicOp("or", "||"),
		{
			Type:     "not",
			Category: CategoryLogic,
			Inputs:   []Port{data("value", "Value")},
			Outputs:  valueOut(),
			Compile: func(_ *graph.Node, in Inputs) string {
				return fmt.Sprintf("!(%s)", in.Get("value", "false"))
			},
		},

		// text
		{
			Type:     "concat",
			Category: CategoryText,
			Inputs:   []Port{data("a", "A"), data("b", "B")},
			Outputs:  valueOut(),
			Defaults: map[string]interface{}{"a": "", "b": ""},
			Compile:  binary("+", `""`),
		},
		textMethod("uppercase", "String(%s).toUpperCase()"),
		textMethod("lowercase", "String(%s).toLowerCase()"),
		textMethod("length", "String(%s).length"),
	}
}

func mathOp(nodeType, op string) Definition {
	return Definition{
		Type:     nodeType,
		Category: CategoryMath,
		Inputs:   []Port{data("a", "A"), data("b", "B")},
		Outputs:  valueOut(),
		Defaults: map[string]interface{}{"a": 0, "b": 0},
		Compile:  binary(op, "0"),
	}
}

func logicOp(nodeType, op string) Definition {
	return Definition{
		Type:     nodeType,
		Category: CategoryLogic,
		Inputs:   []Port{data("a", "A"), data("b", "B")},
		Outputs:  valueOut(),
		Defaults: map[string]interface{}{"a": false, "b": false},
		Compile:  binary(op, "false"),
	}
}

func textMethod(nodeType, format string) Definition {
	return Definition{
		Type:     nodeType,
		Category: CategoryText,
		Inputs:   []Port{data("value", "Value")},
		Outputs:  valueOut(),
		Compile: func(_ *graph.Node, in Inputs) string {
			return fmt.Sprintf(format, in.Get("value", `""`))
		},
	}
}
