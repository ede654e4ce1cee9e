package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"github.com/AaronLay10/ScriptGraph/internal/compiler"
)

type compileJSONResult struct {
	Type        string                `json:"type"`
	Status      string                `json:"status"`
	File        string                `json:"file"`
	Code        string                `json:"code,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics"`
}

func status(result *compiler.Result) string {
	if result.HasErrors() {
		return "error"
	}
	return "success"
}

// renderDiagnostics prints one line per diagnostic to c.Err.
func (c *CLI) renderDiagnostics(file string, diags []compiler.Diagnostic) {
	for _, d := range diags {
		label := color.YellowString("warning")
		if d.Severity == compiler.SeverityError {
			label = color.RedString("error")
		}
		if d.NodeID != "" {
			fmt.Fprintf(c.Err, "%s: %s: node %s: %s\n", file, label, d.NodeID, d.Message)
		} else {
			fmt.Fprintf(c.Err, "%s: %s: %s\n", file, label, d.Message)
		}
	}
}

func (c *CLI) renderJSON(kind, file string, result *compiler.Result, withCode bool) {
	out := compileJSONResult{
		Type:        kind,
		Status:      status(result),
		File:        file,
		Diagnostics: result.Diagnostics,
	}
	if withCode {
		out.Code = result.Code
	}
	if data, err := json.Marshal(out); err == nil {
		c.Println(string(data))
	}
}

func summary(diags []compiler.Diagnostic) string {
	errs := compiler.Count(diags, compiler.SeverityError)
	warns := compiler.Count(diags, compiler.SeverityWarning)
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
}
