package cli

import (
	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/graph"
	"github.com/AaronLay10/ScriptGraph/internal/version"
)

func NewVersionCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cli.Printf("scriptc %s (graph document version %d)\n", version.Version, graph.SupportedVersion)
		},
	}
}
