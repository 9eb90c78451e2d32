package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/smartsearch"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recorded search timings (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			rows, err := c.SearchStats(ctx)
			if err != nil {
				return err
			}
			summary, err := c.SearchStatsSummary(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				if rows == nil {
					rows = []smartsearch.TimingBreakdown{}
				}
				printJSON(w, map[string]any{"timings": rows, "summary": summary})
				return nil
			}
			fmt.Fprintf(w, "%-38s %10s %10s %10s %10s\n", "SEARCH", "TOTAL", "NETWORK", "BACKEND", "RELEVANCY")
			for _, r := range rows {
				fmt.Fprintf(w, "%-38s %10.1f %10.1f %10.1f %10s\n",
					r.SearchID, r.Total, r.NetworkLatency, r.BackendOverhead, r.RelevancyBand)
			}
			fmt.Fprintf(w, "\n%d searches, avg total %.1fms, avg network %.1fms, avg backend %.1fms\n",
				summary.Count, summary.AvgTotal, summary.AvgNetworkLatency, summary.AvgBackend)
			if summary.ScoredSearches > 0 {
				fmt.Fprintf(w, "avg relevancy %.2f over %d scored searches\n", summary.AvgRelevancy, summary.ScoredSearches)
			}
			return nil
		})
	},
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Stream the image search and print records as they arrive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			w := cmd.OutOrStdout()
			res, err := c.StreamImages(ctx, func(img smartsearch.ImageResult) {
				if jsonOutput {
					printJSON(w, img)
					return
				}
				fmt.Fprintf(w, "%4d  %-30s %s\n", img.ID, img.Alt, img.Content)
			})
			if !jsonOutput {
				fmt.Fprintf(w, "%d images, %d malformed records skipped\n", len(res.Images), res.Stats.ParseErrors)
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, galleryCmd)
}
