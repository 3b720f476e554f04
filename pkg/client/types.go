package client

import (
	"encoding/json"
)

// LoginRequest is the body of the token endpoint
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of the refresh endpoint
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenPair is returned by the token and refresh endpoints.
// The refresh endpoint may omit Refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RegisterRequest is the body of the registration endpoint. Email is optional.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Profile is the created user returned by registration
type Profile struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Product represents a catalogue entry. Prices are decimals, sent as strings or numbers.
type Product struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Image       string      `json:"image,omitempty"`
}

// productPage is the paginated form of the product list
type productPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

// CartItem represents a line in the cart
type CartItem struct {
	ID          int         `json:"id"`
	ProductID   int         `json:"product_id,omitempty"`
	ProductName string      `json:"product_name"`
	UnitPrice   json.Number `json:"unit_price"`
	Quantity    int         `json:"quantity"`
	Subtotal    json.Number `json:"subtotal"`
}

// Cart represents the current user's cart
type Cart struct {
	ID          int         `json:"id,omitempty"`
	Items       []CartItem  `json:"items"`
	TotalAmount json.Number `json:"total_amount"`
}

// AddCartItemRequest adds a product to the cart
type AddCartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// UpdateCartItemRequest changes the quantity of a cart line
type UpdateCartItemRequest struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

// RemoveCartItemRequest removes a cart line
type RemoveCartItemRequest struct {
	ItemID int `json:"item_id"`
}
