package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"additive-prompt-api/internal/application/promptgen"
)

func newVariantsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the available prompt variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Title", "Rows"})
			for _, v := range a.generator.Catalog().List() {
				t.AppendRow(table.Row{v.ID, v.Title, fmt.Sprintf("%d-%d (default %d)", v.Rows.Min, v.Rows.Max, v.Rows.Default)})
			}
			t.Render()
			return nil
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <variant>",
		Short: "Show a variant's attributes, presets and usage notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := a.generator.Catalog().Get(args[0])
			if !ok {
				return appError(fmt.Errorf("%w: %s", promptgen.ErrVariantNotFound, args[0]))
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(v.Title))
			fmt.Fprintln(w, v.Description)
			printSection(w, "How it works", v.HowItWorks)
			printSection(w, "Start here", v.StartHere)
			fmt.Fprintln(w)

			t := newTable(w)
			t.AppendHeader(table.Row{"Attribute", "Default", "Presets", "Custom"})
			t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 60}})
			for i := range v.Attributes {
				attr := &v.Attributes[i]
				custom := "no"
				switch {
				case attr.Fixed != "":
					custom = "fixed"
				case attr.AllowCustom:
					custom = "yes"
				}
				t.AppendRow(table.Row{attr.Name, attr.Default(), joinOptions(attr.Options), custom})
			}
			t.Render()
			fmt.Fprintf(w, "rows: %d-%d (default %d)\n", v.Rows.Min, v.Rows.Max, v.Rows.Default)
			return nil
		},
	}
}

// appError 把领域错误转换为带错误码的命令行错误
func appError(err error) error {
	appErr := promptgen.ToAppError(err)
	if appErr.Detail == "" {
		return fmt.Errorf("[%s] %s", appErr.Code, appErr.Message)
	}
	return fmt.Errorf("[%s] %s: %s", appErr.Code, appErr.Message, appErr.Detail)
}
