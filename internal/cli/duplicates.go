package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/spf13/cobra"
)

func newDuplicatesCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find and merge rows sharing item code and supplier",
	}
	cmd.AddCommand(newDuplicatesScanCommand(opts, open))
	cmd.AddCommand(newDuplicatesMergeCommand(opts, open))
	return cmd
}

func newDuplicatesScanCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List duplicate groups and their default winners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(opts, open, func(d *Deps) error {
				groups, err := d.Duplicates.Scan(cmd.Context())
				if err != nil {
					return err
				}
				return render(opts, cmd.OutOrStdout(), groups, func(w io.Writer) error {
					return writeGroups(w, groups)
				})
			})
		},
	}
}

func writeGroups(w io.Writer, groups []models.DuplicateGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No duplicates found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUPPLIER\tITEM CODE\tROWS\tWINNER\tLOSERS")
	for _, g := range groups {
		losers := make([]string, 0, len(g.Members)-1)
		for _, m := range g.Members[1:] {
			losers = append(losers, m.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", g.Supplier, g.ItemCode, g.Count, g.DefaultWinnerID, strings.Join(losers, ","))
	}
	return tw.Flush()
}

type mergeFlags struct {
	auto   bool
	dryRun bool
	winner string
	losers []string
}

func newDuplicatesMergeCommand(opts *RootOptions, open Opener) *cobra.Command {
	flags := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge duplicate rows into a winner",
		Long: `Merge duplicate rows into a winner.

With --auto every duplicate group is merged into its default winner (most
recently updated row). Otherwise --winner and one or more --loser name a
single group. Special orders pointing at a loser are moved to the winner.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, opts, open, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.auto, "auto", false, "merge every group into its default winner")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the merge plan without changing anything")
	cmd.Flags().StringVar(&flags.winner, "winner", "", "id of the row to keep")
	cmd.Flags().StringSliceVar(&flags.losers, "loser", nil, "id of a row to fold into the winner (repeatable)")

	return cmd
}

func runMerge(cmd *cobra.Command, opts *RootOptions, open Opener, flags *mergeFlags) error {
	if flags.auto == (flags.winner != "") {
		return errors.New("use either --auto or --winner with --loser")
	}
	if !flags.auto && len(flags.losers) == 0 {
		return errors.New("--winner needs at least one --loser")
	}

	return withDeps(opts, open, func(d *Deps) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var plan []models.MergeGroup
		if flags.auto {
			groups, err := d.Duplicates.Scan(ctx)
			if err != nil {
				return err
			}
			plan = services.PlanAutoMerge(groups)
		} else {
			plan = []models.MergeGroup{{WinnerID: flags.winner, LoserIDs: flags.losers}}
		}

		if flags.dryRun {
			return render(opts, out, plan, func(w io.Writer) error {
				return writePlan(w, plan)
			})
		}
		if len(plan) == 0 {
			return render(opts, out, &models.MergeResult{}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, "No duplicates found")
				return err
			})
		}

		result := d.Duplicates.Merge(ctx, plan)
		if err := render(opts, out, result, func(w io.Writer) error {
			return writeMergeResult(w, result)
		}); err != nil {
			return err
		}
		if len(result.FailedGroups) > 0 {
			return fmt.Errorf("%d of %d groups failed", len(result.FailedGroups), len(plan))
		}
		return nil
	})
}

func writePlan(w io.Writer, plan []models.MergeGroup) error {
	if len(plan) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to merge")
		return err
	}
	for _, g := range plan {
		if _, err := fmt.Fprintf(w, "keep %s, merge %s\n", g.WinnerID, strings.Join(g.LoserIDs, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func writeMergeResult(w io.Writer, result *models.MergeResult) error {
	fmt.Fprintf(w, "merged %d groups, deleted %d rows, moved %d special orders\n",
		result.Merged, result.Deleted, result.OrdersReassigned)
	for _, f := range result.FailedGroups {
		fmt.Fprintf(w, "  group %d (winner %s): %s %s\n", f.GroupIndex, f.WinnerID, f.Code, f.Message)
	}
	return nil
}
