package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"catalog-service/internal/pricing"
	"github.com/spf13/cobra"
)

func newFormulasCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formulas",
		Short: "Inspect pricing formulas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the live formula set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(opts, open, func(d *Deps) error {
				set, err := d.Pricing.Formulas(cmd.Context())
				if err != nil {
					return err
				}
				return render(opts, cmd.OutOrStdout(), set, func(w io.Writer) error {
					return writeFormulas(w, set)
				})
			})
		},
	})

	return cmd
}

func writeFormulas(w io.Writer, set pricing.FormulaSet) error {
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTAX/L\tTAX FIXED\tSHIP/CASE\tMARGIN DIV\tSRP MULT")
	for _, c := range categories {
		f := set[pricing.Category(c)]
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
			c, f.TaxPerLiter, f.TaxFixed, f.ShippingPerCase, f.MarginDivisor, f.SRPMultiplier)
	}
	return tw.Flush()
}
