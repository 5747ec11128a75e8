package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSuppliersCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "List, rename and delete suppliers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show product counts per supplier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(opts, open, func(d *Deps) error {
				stats, err := d.Suppliers.List(cmd.Context())
				if err != nil {
					return err
				}
				return render(opts, cmd.OutOrStdout(), stats, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "SUPPLIER\tPRODUCTS")
					for _, s := range stats {
						fmt.Fprintf(tw, "%s\t%d\n", s.Supplier, s.Count)
					}
					return tw.Flush()
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a supplier on products and special orders",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(opts, open, func(d *Deps) error {
				result, err := d.Suppliers.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return render(opts, cmd.OutOrStdout(), result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "renamed %q to %q: %d products, %d special orders\n",
						args[0], args[1], result.ProductsUpdated, result.OrdersUpdated)
					return err
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete every product of a supplier",
		Long: `Delete every product of a supplier.

Special orders are kept and keep pointing at the deleted product ids; the
command reports how many are affected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(opts, open, func(d *Deps) error {
				result, err := d.Suppliers.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(opts, cmd.OutOrStdout(), result, func(w io.Writer) error {
					fmt.Fprintf(w, "deleted %d products of %q\n", result.ProductsDeleted, args[0])
					for _, warning := range result.Warnings {
						fmt.Fprintf(w, "warning: %s\n", warning)
					}
					return nil
				})
			})
		},
	})

	return cmd
}
