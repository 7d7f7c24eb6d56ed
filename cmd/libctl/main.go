// cmd/libctl/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"shelfdesk/internal/config"
	"shelfdesk/internal/importer"
	"shelfdesk/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Maintenance jobs for the library database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// withRunner connects to the store, runs fn, then disconnects.
	withRunner := func(fn func(ctx context.Context, r *importer.Runner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := storage.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())
			return fn(ctx, importer.NewRunner(store, logger))
		}
	}

	importCmd := &cobra.Command{
		Use:   "import-csv <file>",
		Short: "Import books from an accession-register CSV export",
		Args:  cobra.ExactArgs(1),
	}
	importCmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return withRunner(func(ctx context.Context, r *importer.Runner) error {
			report, err := r.ImportCSV(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d books, skipped %d rows\n", report.Inserted, report.Skipped)
			return nil
		})(cmd, nil)
	}

	dedupeCmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove untitled and duplicate book records",
		RunE: withRunner(func(ctx context.Context, r *importer.Runner) error {
			report, err := r.RemoveDuplicates(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d untitled and %d duplicate books\n",
				report.UntitledRemoved, report.DuplicateRemoved)
			return nil
		}),
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Normalize almirah numbers and categories across the catalog",
		RunE: withRunner(func(ctx context.Context, r *importer.Runner) error {
			report, err := r.ReconcileCategories(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d, matched %d, updated %d, unmatched %d\n",
				report.Scanned, report.Matched, report.Updated, report.Unmatched)
			return nil
		}),
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default category vocabulary and a sample book",
		RunE: withRunner(func(ctx context.Context, r *importer.Runner) error {
			return r.Seed(ctx)
		}),
	}

	var staffName string
	staffCmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create or refresh an admin staff account",
		Long: "Create or refresh an admin staff account. The account id and " +
			"password are read from NEW_STAFF_ID and NEW_STAFF_PW so the " +
			"password never lands in shell history.",
		RunE: withRunner(func(ctx context.Context, r *importer.Runner) error {
			return r.UpsertStaff(ctx,
				os.Getenv("NEW_STAFF_ID"), staffName, os.Getenv("NEW_STAFF_PW"))
		}),
	}
	staffCmd.Flags().StringVar(&staffName, "name", "", "display name for the account")

	root.AddCommand(importCmd, dedupeCmd, reconcileCmd, seedCmd, staffCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
