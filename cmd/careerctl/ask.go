package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Route one question through the orchestrator",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		reply := app.Orchestrator.RouteQuery(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", reply.Route, reply.Content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
