package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/smartsearch"
)

var (
	productsFilter string
	productsPage   int

	productInput smartsearch.ProductInput
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse and manage the product catalog",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			page, err := c.Products(ctx, productsFilter, productsPage)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(w, page)
				return nil
			}
			for _, p := range page.Items {
				fmt.Fprintf(w, "%-12s %-40s %10.2f  %s\n", p.ID, p.Name, p.Price, p.Brand.Name)
			}
			fmt.Fprintf(w, "page %d of %d (%d products)\n", page.Page, page.TotalPages, page.Total)
			return nil
		})
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get [product-id]",
	Short: "Show one product with its images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			p, err := c.Product(ctx, args[0])
			if err != nil {
				return err
			}
			images, err := c.ProductImages(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(w, map[string]any{"product": p, "images": images})
				return nil
			}
			fmt.Fprintf(w, "%s  %s\n", p.ID, p.Name)
			fmt.Fprintf(w, "  brand:       %s\n", p.Brand.Name)
			fmt.Fprintf(w, "  price:       %.2f\n", p.Price)
			fmt.Fprintf(w, "  categories:  %s\n", categoryNames(p.Categories))
			if p.Subcategory != "" {
				fmt.Fprintf(w, "  subcategory: %s\n", p.Subcategory)
			}
			if p.Description != "" {
				fmt.Fprintf(w, "  %s\n", p.Description)
			}
			for _, img := range images {
				fmt.Fprintf(w, "  image: %s\n", img.Image)
			}
			return nil
		})
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			id, err := c.CreateProduct(ctx, productInput)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"product_id": id})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", id)
			return nil
		})
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update [product-id]",
	Short: "Replace a product (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			if err := c.UpdateProduct(ctx, args[0], productInput); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		})
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete [product-id]",
	Short: "Delete a product (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			if err := c.DeleteProduct(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the category tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			cats, err := c.Categories(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(w, cats)
				return nil
			}
			for _, cat := range cats {
				fmt.Fprintf(w, "%4d  %s\n", cat.ID, cat.Name)
				for _, sub := range cat.Children {
					fmt.Fprintf(w, "%6d  %s\n", sub.ID, sub.Name)
				}
			}
			return nil
		})
	},
}

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List brands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *smartsearch.Client) error {
			brands, err := c.Brands(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(w, brands)
				return nil
			}
			for _, b := range brands {
				fmt.Fprintf(w, "%4d  %s\n", b.ID, b.Name)
			}
			return nil
		})
	},
}

func init() {
	productsListCmd.Flags().StringVarP(&productsFilter, "filter", "f", "", "Filter by name, brand or category")
	productsListCmd.Flags().IntVarP(&productsPage, "page", "p", 1, "Page number")

	for _, cmd := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		f := cmd.Flags()
		f.StringVar(&productInput.Name, "name", "", "Product name")
		f.StringVar(&productInput.Description, "description", "", "Product description")
		f.Float64Var(&productInput.Price, "price", 0, "Price")
		f.StringVar(&productInput.BrandName, "brand", "", "Brand name, created when unknown")
		f.IntVar(&productInput.CategoryID, "category", 0, "Category id")
		f.IntVar(&productInput.SubcategoryID, "subcategory", 0, "Subcategory id")
		f.StringSliceVar(&productInput.Images, "image", nil, "Image URL (repeatable)")
	}

	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCreateCmd, productsUpdateCmd, productsDeleteCmd)
	rootCmd.AddCommand(productsCmd, categoriesCmd, brandsCmd)
}

func categoryNames(cats []smartsearch.Category) string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
