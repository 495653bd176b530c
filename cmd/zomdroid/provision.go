package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Install the bundled runtimes and libraries",
	Long: `Extract every standard bundle whose installed manifest does not match
the bundle version. Matching installs are left alone.`,
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

		manifests, err := h.Provision(cmd.Context())
		for _, m := range manifests {
			state := "installed"
			if m.Skipped {
				state = "up to date"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s (%d files, %d libraries)\n", m.Bundle, state, len(m.Entries), len(m.Libraries))
		}
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-hash installed bundles against their manifests",
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

		manifests, err := h.Verify(cmd.Context())
		for _, m := range manifests {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s ok (%d files)\n", m.Bundle, len(m.Entries))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd, verifyCmd)
}
