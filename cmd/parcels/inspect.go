package main

import (
	"os"

	"parcel-harvester/internal/storage"
	"parcel-harvester/internal/typed"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.csv>",
	Short: "Show the columns of a harvested table and the type a dashboard would load them as.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := storage.ReadCSV(args[0])
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Column", "Type", "Filled", "Missing", "Example"})
		for _, col := range typed.InferColumns(data.Columns, data.Rows) {
			t.AppendRow(table.Row{
				col.Name,
				col.Kind,
				len(col.Values) - col.Missing,
				col.Missing,
				example(col),
			})
		}
		t.AppendFooter(table.Row{"", "", "rows", len(data.Rows), ""})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func example(col typed.Column) string {
	for _, v := range col.Values {
		if v.Kind != typed.Missing {
			return v.Str
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
