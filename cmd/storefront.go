package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/storefront/pkg/client"
)

// productRow is a product with its image resolved against the API origin
type productRow struct {
	client.Product
	ImageURL string `json:"image_url,omitempty"`
}

func (a *app) newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session()
			if err != nil {
				return err
			}

			products, err := c.ListProducts(cmd.Context())
			if err != nil {
				return explain(err)
			}

			rows := make([]productRow, 0, len(products))
			for _, p := range products {
				rows = append(rows, productRow{Product: p, ImageURL: c.ImageURL(p)})
			}

			return render(cmd.OutOrStdout(), a.output, rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tPRICE\tIMAGE")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Price, r.ImageURL)
				}
			})
		},
	}
}

func (a *app) newCartCmd() *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Long:  "Show the cart of the logged in user. Subcommands change it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showCart(cmd)
		},
	}

	var quantity int
	addCmd := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product ID", args[0])
			if err != nil {
				return err
			}
			return a.changeCart(cmd, func(c *client.Client) error {
				return c.AddToCart(cmd.Context(), productID, quantity)
			})
		},
	}
	addCmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Quantity to add")

	updateCmd := &cobra.Command{
		Use:   "update ITEM_ID QUANTITY",
		Short: "Change the quantity of a cart item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item ID", args[0])
			if err != nil {
				return err
			}
			qty, err := parseID("quantity", args[1])
			if err != nil {
				return err
			}
			return a.changeCart(cmd, func(c *client.Client) error {
				return c.UpdateCartItem(cmd.Context(), itemID, qty)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove ITEM_ID",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item ID", args[0])
			if err != nil {
				return err
			}
			return a.changeCart(cmd, func(c *client.Client) error {
				return c.RemoveCartItem(cmd.Context(), itemID)
			})
		},
	}

	checkoutCmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session()
			if err != nil {
				return err
			}
			if err := c.Checkout(cmd.Context()); err != nil {
				return explain(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Order placed")
			return err
		},
	}

	cartCmd.AddCommand(addCmd, updateCmd, removeCmd, checkoutCmd)
	return cartCmd
}

// changeCart applies change and prints the resulting cart
func (a *app) changeCart(cmd *cobra.Command, change func(c *client.Client) error) error {
	c, err := a.session()
	if err != nil {
		return err
	}
	if err := change(c); err != nil {
		return explain(err)
	}
	return a.showCart(cmd)
}

func (a *app) showCart(cmd *cobra.Command) error {
	c, err := a.session()
	if err != nil {
		return err
	}

	cart, err := c.GetCart(cmd.Context())
	if err != nil {
		return explain(err)
	}

	return render(cmd.OutOrStdout(), a.output, cart, func(tw *tabwriter.Writer) {
		if len(cart.Items) == 0 {
			fmt.Fprintln(tw, "Cart is empty")
			return
		}
		fmt.Fprintln(tw, "ITEM\tPRODUCT\tUNIT PRICE\tQTY\tSUBTOTAL")
		for _, item := range cart.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", item.ID, item.ProductName, item.UnitPrice, item.Quantity, item.Subtotal)
		}
		fmt.Fprintf(tw, "\t\t\tTOTAL\t%s\n", cart.TotalAmount)
	})
}

func parseID(name, value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return id, nil
}
