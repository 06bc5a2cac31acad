// Package cmd wires together the voyage-ingest subcommands.
//
// # Available commands
//
//	voyage-ingest run        — parse the document and write the database and spreadsheet
//	voyage-ingest validate   — parse and validate the document; only ingest_log rows are written
//	voyage-ingest reconcile  — prune stale voyages/joins without validating or fetching media
//
// Run `voyage-ingest --help` or `voyage-ingest <command> --help` for flag details.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sequoia-archive/voyage-ingest/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "voyage-ingest",
	Short: "Presidential yacht voyage document ingest engine",
	Long: `voyage-ingest parses a structured voyage document, validates it, fetches its
declared media from Google Drive/Dropbox, and projects the result onto a
Postgres database and a Google Sheet, reconciling both against whatever the
document no longer mentions.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Parse the document and write the database and spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		docPath, _ := cmd.Flags().GetString("doc")
		pruneMasters, _ := cmd.Flags().GetBool("prune-masters")
		syncMode, _ := cmd.Flags().GetString("sync-mode")

		a, err := app.Build(context.Background())
		if err != nil {
			return fmt.Errorf("build app: %w", err)
		}
		defer a.Close()

		snap, err := a.Run(cmd.Context(), docPath, pruneMasters, syncMode)
		if err != nil {
			return err
		}
		fmt.Printf("voyages processed=%d failed=%d media_uploaded=%d errors=%d warnings=%d\n",
			snap.VoyagesProcessed, snap.VoyagesFailed, snap.MediaUploaded, snap.ErrorsCount, snap.WarningsCount)
		if snap.VoyagesFailed > 0 {
			os.Exit(1)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate the document, writing only ingest_log rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		docPath, _ := cmd.Flags().GetString("doc")

		a, err := app.Build(context.Background())
		if err != nil {
			return fmt.Errorf("build app: %w", err)
		}
		defer a.Close()

		snap, err := a.Run(cmd.Context(), docPath, false, "validate")
		if err != nil {
			return err
		}
		fmt.Printf("voyages=%d errors=%d warnings=%d\n", snap.VoyagesProcessed+snap.VoyagesFailed, snap.ErrorsCount, snap.WarningsCount)
		if snap.ErrorsCount > 0 {
			os.Exit(1)
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Prune voyages and join rows the current document no longer declares",
	Long: `reconcile re-parses the document to determine which voyages currently exist,
then deletes any database row and spreadsheet row for a voyage outside that
set. It never deletes from the object store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		docPath, _ := cmd.Flags().GetString("doc")
		pruneMasters, _ := cmd.Flags().GetBool("prune-masters")

		a, err := app.Build(context.Background())
		if err != nil {
			return fmt.Errorf("build app: %w", err)
		}
		defer a.Close()

		result, err := a.Reconcile(cmd.Context(), docPath, pruneMasters)
		if err != nil {
			return err
		}
		fmt.Printf("db_voyages_pruned=%d sheet_voyages_pruned=%d\n", result.DBVoyagesDeleted, result.SheetVoyagesDeleted)
		return nil
	},
}

// Execute registers all subcommands and runs the CLI.
func Execute() {
	runCmd.Flags().String("doc", "", "path to the source document (markdown)")
	runCmd.Flags().Bool("prune-masters", false, "also delete people/media rows left unreferenced by every voyage")
	runCmd.Flags().String("sync-mode", "full", "carried into the audit log verbatim")
	_ = runCmd.MarkFlagRequired("doc")

	validateCmd.Flags().String("doc", "", "path to the source document (markdown)")
	_ = validateCmd.MarkFlagRequired("doc")

	reconcileCmd.Flags().String("doc", "", "path to the source document (markdown), used only to determine the current voyage set")
	reconcileCmd.Flags().Bool("prune-masters", false, "also delete people/media rows left unreferenced by every voyage")
	_ = reconcileCmd.MarkFlagRequired("doc")

	rootCmd.AddCommand(runCmd, validateCmd, reconcileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
