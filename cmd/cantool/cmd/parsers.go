package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/roffe/canbridge/parser"
	"github.com/spf13/cobra"
)

var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "List decoders and the id mappings in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PARSER\tVERSION\tKIND\tPRIORITY\tENABLED\tIDS")
		for _, p := range reg.Parsers() {
			ids := ""
			for i, r := range p.DeclaredIDs() {
				if i > 0 {
					ids += ","
				}
				ids += r.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%s\n", p.Name(), p.Version(), p.Kind(), p.Priority(), p.Enabled(), ids)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		for _, m := range reg.DirectMappings() {
			fmt.Fprintf(out, "direct %s -> %s\n", m.IDs, m.Parser)
		}
		for _, m := range reg.RangeMappings() {
			fmt.Fprintf(out, "range  %s -> %s\n", m.IDs, m.Parser)
		}
		st := reg.Stats()
		fmt.Fprintf(out, "\n%d parsers, %d enabled, default %q\n", st.Parsers, st.Enabled, st.Default)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List every decoder built into this binary",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, info := range parser.Catalog() {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		}
	},
}

func init() {
	parsersCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(parsersCmd)
}
