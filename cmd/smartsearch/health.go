package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/smartsearch"
	"github.com/kailas-cloud/smartsearch/internal/version"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backend and the telemetry store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			h := c.Health(ctx)
			w := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(w, map[string]any{"status": h.Status, "checks": h.Checks})
			} else {
				fmt.Fprintf(w, "status: %s\n", h.Status)
				names := make([]string, 0, len(h.Checks))
				for name := range h.Checks {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "  %-10s %s\n", name, h.Checks[name])
				}
			}
			if h.Status == "error" {
				return errors.New("unhealthy")
			}
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]string{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
			})
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "smartsearch %s (%s, %s)\n", version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd, versionCmd)
}
