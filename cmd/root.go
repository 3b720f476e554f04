package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/takutakahashi/storefront/pkg/client"
	"github.com/takutakahashi/storefront/pkg/config"
	"github.com/takutakahashi/storefront/pkg/credentials"
	"github.com/takutakahashi/storefront/pkg/logger"
)

// app holds the state shared by the commands of one invocation
type app struct {
	v *viper.Viper

	configPath string
	output     string
	verbose    bool

	config *config.Config
	logger *slog.Logger
	store  credentials.Store
	client *client.Client
}

// NewRootCmd builds the storefront command tree
func NewRootCmd() *cobra.Command {
	rootCmd, _ := newRootCmd()
	return rootCmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront CLI",
		Long:          "Command line client for the storefront API: browse products, manage the cart and check out",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file path (default "+config.DefaultConfigPath()+")")
	flags.String("base-url", "", "Storefront API base URL")
	flags.String("store", "", "Credential store: memory, file, redis or s3")
	flags.StringVarP(&a.output, "output", "o", formatTable, "Output format: table, json or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	// Bind flags to viper
	if err := a.v.BindPFlag("api.base_url", flags.Lookup("base-url")); err != nil {
		slog.Warn("failed to bind base-url flag", "error", err)
	}
	if err := a.v.BindPFlag("store.type", flags.Lookup("store")); err != nil {
		slog.Warn("failed to bind store flag", "error", err)
	}

	rootCmd.AddCommand(
		a.newLoginCmd(),
		a.newRegisterCmd(),
		a.newLogoutCmd(),
		a.newStatusCmd(),
		a.newProductsCmd(),
		a.newCartCmd(),
		a.newMockServerCmd(),
	)
	a.releaseStoreAfterRun(rootCmd)

	return rootCmd, a
}

// releaseStoreAfterRun wraps every RunE in the tree so the credential store
// is closed when the command returns, failed or not
func (a *app) releaseStoreAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if closeErr := a.close(); err == nil {
					err = closeErr
				}
			}()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.releaseStoreAfterRun(sub)
	}
}

func (a *app) loadConfig() error {
	if _, err := parseFormat(a.output); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	a.config = cfg
	a.logger = logger.New(cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

// session returns the client, opening the credential store on first use
func (a *app) session() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	store, err := credentials.NewStore(&a.config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	a.store = store

	a.client = client.NewClientFromConfig(a.config.API,
		client.WithStore(store),
		client.WithLogger(a.logger),
	)
	a.logger.Debug("session ready", "base_url", a.config.API.BaseURL, "store", a.config.Store.Type)
	return a.client, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.client = nil
	return err
}

// explain turns pipeline errors into messages a CLI user can act on
func explain(err error) error {
	if errors.Is(err, client.ErrAuthenticationExpired) {
		return fmt.Errorf("%w; run 'storefront login' to sign in again", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
