package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>...",
		Short: "Classify descriptions against the stored rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCategorizer(cmd, func(ctx context.Context, svc *categorization.Service) error {
				results, err := svc.ClassifyBatch(ctx, args)
				if err != nil {
					return err
				}
				for i, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%-40q category=%d match=%s confidence=%.2f\n",
						args[i], r.CategoryID, r.MatchType, r.Confidence)
				}
				return nil
			})
		},
	}
}

func newLearnCommand() *cobra.Command {
	var categoryID int
	var propagate bool

	cmd := &cobra.Command{
		Use:   "learn <description>",
		Short: "Store the merchant pattern of a description as a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if categoryID <= 0 {
				return errors.New("--category must be a positive category id")
			}
			return withCategorizer(cmd, func(ctx context.Context, svc *categorization.Service) error {
				rule, err := svc.Learn(ctx, args[0], categoryID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %s: %q -> category %d (used %d times)\n",
					rule.ID, rule.Pattern, rule.CategoryID, rule.UseCount)

				if !propagate {
					return nil
				}
				n, err := svc.PropagateSimilar(ctx, args[0], categoryID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d uncategorized transaction(s) updated\n", n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&categoryID, "category", 0, "category id (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().BoolVar(&propagate, "propagate", false, "also categorize matching uncategorized transactions")

	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print rule counts and the most used rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCategorizer(cmd, func(ctx context.Context, svc *categorization.Service) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			})
		},
	}
}
