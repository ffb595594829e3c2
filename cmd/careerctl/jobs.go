package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"career-hub/internal/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the job listings database",
}

var jobsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import listings from a CSV, JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsImport,
}

var jobsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored listings",
	RunE:  runJobsCount,
}

var indexAfterImport bool

func init() {
	jobsImportCmd.Flags().BoolVar(&indexAfterImport, "index", false, "also embed the imported listings into the vector store")
	jobsCmd.AddCommand(jobsImportCmd, jobsCountCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsImport(cmd *cobra.Command, args []string) error {
	listings, err := jobs.LoadFile(args[0])
	if err != nil {
		return err
	}

	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	n, err := app.Jobs.Upsert(ctx, listings)
	if err != nil {
		return fmt.Errorf("import listings: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d listings from %s\n", n, args[0])

	if indexAfterImport {
		indexed, err := app.Indexer.IndexListings(ctx, listings)
		if err != nil {
			return fmt.Errorf("index listings: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d listings into %s\n", indexed, app.Config.VectorCollection)
	}
	return nil
}

func runJobsCount(cmd *cobra.Command, args []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Jobs.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	return nil
}
