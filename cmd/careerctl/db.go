package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Jobs database utilities",
}

var dbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the jobs database connection and list its tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if app.SQLAgent == nil {
			return errors.New("jobs database is not configured")
		}
		tables, err := app.SQLAgent.VerifyConnection(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "connected (%s), tables: %v\n", app.Dialect, tables)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbVerifyCmd)
	rootCmd.AddCommand(dbCmd)
}
