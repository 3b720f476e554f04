package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/storefront/internal/mockbackend"
)

func (a *app) newMockServerCmd() *cobra.Command {
	var (
		port      string
		accessTTL time.Duration
		rotate    bool
		paginate  bool
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory storefront backend",
		Long: `Run an in-memory backend that speaks the storefront API under /api/.

Useful for trying the CLI locally: point --base-url at http://localhost:<port>/api/.
Short access token lifetimes exercise the refresh flow. Metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := mockbackend.DefaultConfig()
			config.AccessTTL = accessTTL
			config.RotateRefresh = rotate
			config.Paginate = paginate
			server := mockbackend.New(config)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(":" + port)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Mock storefront backend listening on http://localhost:%s/api/\n", port)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutdown signal received, shutting down mock backend")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8000", "Port to listen on")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 5*time.Minute, "Access token lifetime")
	cmd.Flags().BoolVar(&rotate, "rotate-refresh", false, "Issue a new single-use refresh token on every refresh")
	cmd.Flags().BoolVar(&paginate, "paginate", false, "Wrap the product list in a paginated envelope")

	return cmd
}
