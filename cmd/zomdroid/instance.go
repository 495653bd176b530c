package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage game instances",
}

var instanceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an instance from a build preset",
	Example: `
  # Create a Build 41 instance
  zomdroid instance create survival --preset 41
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		presetName, _ := cmd.Flags().GetString("preset")
		preset, ok := runtime.PresetByName(presetName)
		if !ok {
			return fmt.Errorf("unknown preset %q", presetName)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		h, err := e.host()
		if err != nil {
			return err
		}
		defer h.Close(cmd.Context())

		inst, err := h.Store().Create(args[0], preset)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\nCopy the game files into %s\n", inst.Name, inst.Preset, inst.GameDir())
		return nil
	},
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		h, err := e.host()
		if err != nil {
			return err
		}
		defer h.Close(cmd.Context())

		instances, err := h.Store().List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPRESET\tGAME FILES\tCREATED")
		for _, inst := range instances {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", inst.Name, inst.Preset, inst.HasGameFiles(), inst.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	instanceCreateCmd.Flags().String("preset", runtime.PresetBuild42.Name, "Build preset, e.g. 41 or \"Build 42.13\"")
	instanceCmd.AddCommand(instanceCreateCmd, instanceListCmd)
	rootCmd.AddCommand(instanceCmd)
}
