package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Work with on-screen control layouts",
}

var layoutValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a YAML or JSON control layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := input.LoadLayout(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d elements ok\n", args[0], len(l.Elements))
		return nil
	},
}

var layoutDefaultCmd = &cobra.Command{
	Use:   "default <file>",
	Short: "Write the default layout to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return input.DefaultLayout().Save(args[0])
	},
}

func init() {
	layoutCmd.AddCommand(layoutValidateCmd, layoutDefaultCmd)
	rootCmd.AddCommand(layoutCmd)
}
