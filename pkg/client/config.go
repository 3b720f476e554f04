package client

import (
	"net/http"
	"time"

	"github.com/takutakahashi/storefront/pkg/utils"
)

// DefaultBaseURL is the hosted storefront API
const DefaultBaseURL = "https://ecomproject1-iobp.onrender.com/api/"

// Config holds the client configuration
type Config struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Tracing bool          `json:"tracing" mapstructure:"tracing"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: utils.DefaultHTTPClientConfig().Timeout,
		Tracing: true,
	}
}

// HTTPClient builds the HTTP client described by the configuration
func (c Config) HTTPClient() *http.Client {
	return utils.NewHTTPClient(utils.HTTPClientConfig{
		Timeout: c.Timeout,
		Tracing: c.Tracing,
	})
}

// NewClientFromConfig creates a client from config; opts are applied after the config
func NewClientFromConfig(config Config, opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(config.HTTPClient())}, opts...)
	return NewClient(config.BaseURL, opts...)
}
