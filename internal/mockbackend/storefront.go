package mockbackend

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type productView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Image       string `json:"image,omitempty"`
}

type productPage struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []productView `json:"results"`
}

type cartItemView struct {
	ID          int    `json:"id"`
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type cartView struct {
	ID          int            `json:"id"`
	Items       []cartItemView `json:"items"`
	TotalAmount string         `json:"total_amount"`
}

type addItemRequest struct {
	ProductID int `json:"product_id" validate:"required"`
	Quantity  int `json:"quantity" validate:"gte=1"`
}

type updateItemRequest struct {
	ItemID   int `json:"item_id" validate:"required"`
	Quantity int `json:"quantity" validate:"gte=1"`
}

type removeItemRequest struct {
	ItemID int `json:"item_id" validate:"required"`
}

type checkoutResponse struct {
	Detail  string `json:"detail"`
	OrderID string `json:"order_id"`
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func (s *Server) handleProducts(c echo.Context) error {
	s.mu.Lock()
	views := make([]productView, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		p := s.products[id]
		views = append(views, productView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       formatCents(p.PriceCents),
			Image:       p.Image,
		})
	}
	s.mu.Unlock()

	if s.config.Paginate {
		return c.JSON(http.StatusOK, productPage{Count: len(views), Results: views})
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetCart(c echo.Context) error {
	username := c.Get(usernameKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	return c.JSON(http.StatusOK, s.cartViewLocked(username))
}

func (s *Server) handleAddToCart(c echo.Context) error {
	username := c.Get(usernameKey).(string)
	var req addItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[req.ProductID]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found.")
	}

	var line *cartLine
	for _, l := range s.carts[username] {
		if l.ProductID == req.ProductID {
			line = l
			break
		}
	}
	if line == nil {
		line = &cartLine{ID: s.nextItemID, ProductID: req.ProductID}
		s.nextItemID++
		s.carts[username] = append(s.carts[username], line)
	}
	line.Quantity += req.Quantity

	return c.JSON(http.StatusCreated, s.cartViewLocked(username))
}

func (s *Server) handleUpdateCartItem(c echo.Context) error {
	username := c.Get(usernameKey).(string)
	var req updateItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.carts[username] {
		if l.ID == req.ItemID {
			l.Quantity = req.Quantity
			return c.JSON(http.StatusOK, s.cartViewLocked(username))
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Cart item not found.")
}

func (s *Server) handleRemoveCartItem(c echo.Context) error {
	username := c.Get(usernameKey).(string)
	var req removeItemRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[username]
	for i, l := range lines {
		if l.ID == req.ItemID {
			s.carts[username] = append(lines[:i], lines[i+1:]...)
			return c.JSON(http.StatusOK, s.cartViewLocked(username))
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Cart item not found.")
}

func (s *Server) handleCheckout(c echo.Context) error {
	username := c.Get(usernameKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.carts[username]) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Cart is empty.")
	}
	orderID := uuid.NewString()
	s.orders[username] = append(s.orders[username], orderID)
	delete(s.carts, username)

	return c.JSON(http.StatusOK, checkoutResponse{Detail: "Order placed.", OrderID: orderID})
}

// cartViewLocked renders the cart of username. s.mu must be held.
func (s *Server) cartViewLocked(username string) cartView {
	view := cartView{ID: s.users[username].ID, Items: []cartItemView{}}
	var total int64
	for _, l := range s.carts[username] {
		p := s.products[l.ProductID]
		subtotal := p.PriceCents * int64(l.Quantity)
		total += subtotal
		view.Items = append(view.Items, cartItemView{
			ID:          l.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   formatCents(p.PriceCents),
			Quantity:    l.Quantity,
			Subtotal:    formatCents(subtotal),
		})
	}
	view.TotalAmount = formatCents(total)
	return view
}
