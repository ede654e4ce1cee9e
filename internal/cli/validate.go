package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/compiler"
	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

func NewValidateCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a graph document without printing code",
		Long: Highlight("scriptc validate <file>") + "\n\n" +
			"Check the document schema and compile the graph, reporting every\n" +
			"diagnostic. Nothing is written to stdout except the verdict.\n",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			result, err := cli.load(path)
			if err != nil {
				return err
			}

			if cli.Output == OutputJSON {
				cli.renderJSON("validate", path, result, false)
			} else {
				cli.renderDiagnostics(path, result.Diagnostics)
				if result.HasErrors() {
					cli.Println(color.RGB(229, 50, 50).Sprintf("Invalid!"), summary(result.Diagnostics)+".")
				} else {
					cli.Println(color.RGB(50, 108, 229).Sprintf("Valid!"), summary(result.Diagnostics)+".")
				}
			}

			if result.HasErrors() {
				return errReported
			}
			return nil
		},
	}
}

func (c *CLI) load(path string) (*compiler.Result, error) {
	doc, err := graph.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return c.svc.CompileDocument(doc), nil
}
