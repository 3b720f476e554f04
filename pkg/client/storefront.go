package client

import (
	"bytes"
	"context"
	"net/http"
)

// ListProducts returns the product catalogue. Both a bare list and a paginated
// {"results": [...]} envelope are accepted.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	req := NewRequest(http.MethodGet, productsPath, nil)

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '{' {
		var page productPage
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		return page.Results, nil
	}

	var products []Product
	if err := resp.Decode(&products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetCart returns the current user's cart
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.doJSON(ctx, http.MethodGet, cartPath, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product to the cart
func (c *Client) AddToCart(ctx context.Context, productID, quantity int) error {
	return c.doJSON(ctx, http.MethodPost, cartPath, AddCartItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

// UpdateCartItem sets the quantity of a cart line
func (c *Client) UpdateCartItem(ctx context.Context, itemID, quantity int) error {
	return c.doJSON(ctx, http.MethodPatch, cartPath, UpdateCartItemRequest{ItemID: itemID, Quantity: quantity}, nil)
}

// RemoveCartItem removes a cart line
func (c *Client) RemoveCartItem(ctx context.Context, itemID int) error {
	return c.doJSON(ctx, http.MethodDelete, cartPath, RemoveCartItemRequest{ItemID: itemID}, nil)
}

// Checkout places an order for the cart contents
func (c *Client) Checkout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPut, cartPath, nil, nil)
}
