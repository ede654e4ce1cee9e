package cli

import (
	"encoding/json"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
)

func NewNodesCommand(cli *CLI) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the node types the compiler knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var defs []*catalog.Definition
			for _, def := range cli.svc.Catalog().Definitions() {
				if category == "" || string(def.Category) == category {
					defs = append(defs, def)
				}
			}

			if cli.Output == OutputJSON {
				data, err := json.Marshal(defs)
				if err != nil {
					return err
				}
				cli.Println(string(data))
				return nil
			}

			headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
			columnFmt := color.New(color.FgYellow).SprintfFunc()

			tbl := table.New("Type", "Category", "Inputs", "Outputs")
			tbl.WithWriter(cli.Out).WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
			for _, def := range defs {
				tbl.AddRow(def.Type, def.Category, portList(def.Inputs), portList(def.Outputs))
			}
			tbl.Print()
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list node types of this category")
	return cmd
}

// portList renders ports as "id" with "*" for required and "~" for flow.
func portList(ports []catalog.Port) string {
	if len(ports) == 0 {
		return "-"
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		name := p.ID
		if p.Kind == catalog.KindVoid {
			name = "~" + name
		}
		if p.Required {
			name += "*"
		}
		names[i] = name
	}
	return strings.Join(names, ", ")
}
