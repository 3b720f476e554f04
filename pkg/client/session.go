package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/takutakahashi/storefront/pkg/credentials"
)

// Login exchanges username and password for a token pair and stores both tokens.
// A rejected login returns a *ValidationError matching ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	resp, err := c.sendUnauthenticated(ctx, tokenPath, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, newValidationError(resp.StatusCode, resp.Body, ErrInvalidCredentials)
	case resp.StatusCode >= 400:
		return nil, resp.Err()
	}

	var tokens TokenPair
	if err := resp.Decode(&tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, fmt.Errorf("token response carried no access token")
	}

	if err := c.store.Set(ctx, credentials.Pair{Access: tokens.Access, Refresh: tokens.Refresh}); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	c.logger.Info("logged in", "username", username)
	return &tokens, nil
}

// Register creates an account. It does not log in. Field errors from the backend
// are returned verbatim in a *ValidationError.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	resp, err := c.sendUnauthenticated(ctx, registerPath, req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, newValidationError(resp.StatusCode, resp.Body, ErrValidationFailed)
	case resp.StatusCode >= 500:
		return nil, resp.Err()
	}

	var profile Profile
	if len(resp.Body) > 0 {
		if err := resp.Decode(&profile); err != nil {
			return nil, err
		}
	}

	c.logger.Info("registered", "username", req.Username)
	return &profile, nil
}

// RegisterAndLogin registers an account and logs in with the same credentials
func (c *Client) RegisterAndLogin(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	if _, err := c.Register(ctx, req); err != nil {
		return nil, err
	}
	return c.Login(ctx, req.Username, req.Password)
}

// Logout forgets the stored credentials. No network call is made.
func (c *Client) Logout(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear credentials on logout", "error", err)
	}
}

// IsAuthenticated reports whether an access credential is stored
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.store.Get(ctx).Access != ""
}
