// Package cli implements the scriptc command line compiler.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/service"
	"github.com/AaronLay10/ScriptGraph/internal/version"
)

// Output formats accepted by -o.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// errReported is returned when diagnostics with errors were already
// printed; it only sets the exit status.
var errReported = errors.New("")

// CLI carries the writers and shared state of one invocation.
type CLI struct {
	Out    io.Writer
	Err    io.Writer
	Output string

	svc *service.Service
}

func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{Out: out, Err: errOut, Output: OutputText, svc: service.New()}
}

func (c *CLI) Printf(format string, a ...any) {
	fmt.Fprintf(c.Out, format, a...)
}

func (c *CLI) Println(a ...any) {
	fmt.Fprintln(c.Out, a...)
}

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptc",
		Short: "Compile visual story scripts to player code",
		Long: Highlight("Usage: scriptc <command> [args]") + "\n\n" +
			"scriptc compiles node graphs exported by the story editor into the\n" +
			"script the player runs. Problems in the graph are reported as\n" +
			"diagnostics; the exit status is 1 when any of them is an error.\n",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cli.Output {
			case OutputText, OutputJSON:
				return nil
			}
			return fmt.Errorf("invalid output format: %s", cli.Output)
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&cli.Output, "output", "o", OutputText, "Output format. One of: (text | json)")

	cmd.AddCommand(
		NewCompileCommand(cli),
		NewValidateCommand(cli),
		NewNodesCommand(cli),
		NewVersionCommand(cli),
	)
	return cmd
}

// Run executes scriptc with args and returns the process exit status.
func Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}

	cli := NewCLI(out, errOut)
	root := NewRootCommand(cli)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			fmt.Fprintln(errOut, color.RedString("Error:"), msg)
		}
		return 1
	}
	return 0
}

func exactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		_ = cmd.Usage()
		if number == 1 {
			return fmt.Errorf("requires exactly 1 argument")
		}
		return fmt.Errorf("requires exactly %d arguments", number)
	}
}
