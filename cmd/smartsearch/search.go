package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/smartsearch"
)

var (
	searchImage   string
	searchInstead bool
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Submit a search and print its results",
	Long: `Submit a text query, an image (--image) or both. When the backend
corrects the query, --instead repeats the search with the raw text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var openCmd = &cobra.Command{
	Use:   "open [search-id]",
	Short: "Load the results of an existing search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			snap, err := c.Open(ctx, args[0])
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote [search-id] [product-id] [like|dislike]",
	Short: "Toggle relevance feedback for one result",
	Long:  `Clicking the same vote twice clears it, as the result list does.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		clicked, ok := smartsearch.ParseVote(args[2])
		if !ok {
			return fmt.Errorf("vote must be like or dislike, got %q", args[2])
		}
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			if _, err := c.Open(ctx, args[0]); err != nil {
				return err
			}
			got, err := c.Vote(ctx, args[1], clicked)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"search_id":  args[0],
					"product_id": args[1],
					"vote":       got.String(),
				})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[1], got)
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchImage, "image", "i", "", "Image file to search by")
	searchCmd.Flags().BoolVar(&searchInstead, "instead", false, "Search again for the raw text when the query was corrected")
	rootCmd.AddCommand(searchCmd, openCmd, voteCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := smartsearch.QueryRequest{}
	if len(args) == 1 {
		q.Text = args[0]
	}
	if searchImage != "" {
		data, err := os.ReadFile(searchImage)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		q.Image = data
		q.ImageName = filepath.Base(searchImage)
	}

	return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
		snap, err := c.Search(ctx, q)
		if err != nil {
			return err
		}
		if searchInstead {
			switch again, err := c.SearchInstead(ctx); {
			case errors.Is(err, smartsearch.ErrNoCorrection):
			case err != nil:
				return err
			default:
				snap = again
			}
		}
		printSnapshot(cmd.OutOrStdout(), snap)
		return nil
	})
}

type snapshotView struct {
	SearchID      string                `json:"search_id"`
	Phase         string                `json:"phase"`
	RawText       string                `json:"raw_text,omitempty"`
	CorrectedText string                `json:"corrected_text,omitempty"`
	Products      []smartsearch.Product `json:"products"`
	Error         string                `json:"error,omitempty"`
}

func printSnapshot(w io.Writer, snap smartsearch.Snapshot) {
	if jsonOutput {
		v := snapshotView{
			SearchID:      snap.SearchID,
			Phase:         snap.Phase.String(),
			RawText:       snap.RawText,
			CorrectedText: snap.CorrectedText,
			Products:      snap.Products,
		}
		if v.Products == nil {
			v.Products = []smartsearch.Product{}
		}
		if snap.Err != nil {
			v.Error = snap.Err.Error()
		}
		printJSON(w, v)
		return
	}

	fmt.Fprintf(w, "search %s (%s)\n", snap.SearchID, snap.Phase)
	if snap.CanSearchInstead() {
		fmt.Fprintf(w, "showing results for %q, search instead for %q with --instead\n", snap.CorrectedText, snap.RawText)
	}
	if snap.Err != nil {
		fmt.Fprintf(w, "error: %v\n", snap.Err)
	}
	for _, p := range snap.Products {
		fmt.Fprintf(w, "  %-12s %-40s %10.2f  %s\n", p.ID, p.Name, p.Price, p.Brand.Name)
	}
	if len(snap.Products) == 0 && snap.Err == nil {
		fmt.Fprintln(w, "  no products found")
	}
}
