package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Manage the job knowledge vector collection",
}

var vectorsSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the collection when missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.RAG.EnsureCollection(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "collection %s ready (%d dims, %s)\n",
			app.Config.VectorCollection, app.Config.EmbeddingDims, app.Config.VectorStore)
		return nil
	},
}

var vectorsIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed every stored listing into the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Indexer.IndexRepo(cmd.Context(), app.Jobs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d listings into %s\n", n, app.Config.VectorCollection)
		return nil
	},
}

func init() {
	vectorsCmd.AddCommand(vectorsSetupCmd, vectorsIndexCmd)
	rootCmd.AddCommand(vectorsCmd)
}
