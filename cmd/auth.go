package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/takutakahashi/storefront/pkg/client"
)

func (a *app) newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session credentials",
		Long: `Log in with a username and password.

The access and refresh tokens are kept in the configured credential store and
used by every later command. When --password is omitted it is read from stdin,
without echo when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}

			c, err := a.session()
			if err != nil {
				return err
			}
			if _, err := c.Login(cmd.Context(), username, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	if err := cmd.MarkFlagRequired("username"); err != nil {
		panic(err)
	}

	return cmd
}

func (a *app) newRegisterCmd() *cobra.Command {
	var req client.RegisterRequest
	var login bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  "Create an account. With --login the new account is logged in right away.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}

			c, err := a.session()
			if err != nil {
				return err
			}

			if _, err := c.Register(cmd.Context(), req); err != nil {
				return registrationError(err)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", req.Username); err != nil {
				return err
			}

			if !login {
				return nil
			}
			if _, err := c.Login(cmd.Context(), req.Username, req.Password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", req.Username)
			return err
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&login, "login", false, "Log in after registering")
	if err := cmd.MarkFlagRequired("username"); err != nil {
		panic(err)
	}

	return cmd
}

// registrationError keeps the backend's field messages and falls back to a generic message
func registrationError(err error) error {
	var verr *client.ValidationError
	if errors.As(err, &verr) && (len(verr.Detail) > 0 || len(verr.Fields) > 0) {
		return fmt.Errorf("registration failed: %s", verr.Error())
	}
	if verr != nil {
		return errors.New("registration failed")
	}
	return fmt.Errorf("registration failed: %w", err)
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session()
			if err != nil {
				return err
			}
			c.Logout(cmd.Context())

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

// sessionStatus describes the stored credentials without contacting the backend
type sessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	BaseURL       string     `json:"base_url"`
	Store         string     `json:"store"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	CanRefresh    bool       `json:"can_refresh"`
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Long: `Show whether credentials are stored and when the access token expires.

The token is decoded locally without verifying its signature; no request is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session()
			if err != nil {
				return err
			}

			pair := c.Store().Get(cmd.Context())
			status := sessionStatus{
				Authenticated: pair.Access != "",
				BaseURL:       c.BaseURL(),
				Store:         string(a.config.Store.Type),
				CanRefresh:    pair.Refresh != "",
			}
			if pair.Access != "" {
				inspectAccessToken(pair.Access, &status)
			}

			return render(cmd.OutOrStdout(), a.output, status, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Base URL:\t%s\n", status.BaseURL)
				fmt.Fprintf(tw, "Store:\t%s\n", status.Store)
				if !status.Authenticated {
					fmt.Fprintf(tw, "Session:\tnot logged in\n")
					return
				}
				fmt.Fprintf(tw, "Session:\tlogged in\n")
				if status.Subject != "" {
					fmt.Fprintf(tw, "User:\t%s\n", status.Subject)
				}
				if status.ExpiresAt != nil {
					state := "valid"
					if status.Expired {
						state = "expired"
					}
					fmt.Fprintf(tw, "Access token:\t%s until %s\n", state, status.ExpiresAt.Local().Format(time.RFC3339))
				}
				fmt.Fprintf(tw, "Refresh token:\t%t\n", status.CanRefresh)
			})
		},
	}
}

// inspectAccessToken fills subject and expiry from an unverified JWT.
// Opaque tokens are left as they are.
func inspectAccessToken(access string, status *sessionStatus) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return
	}

	status.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		status.ExpiresAt = &expiresAt
		status.Expired = time.Now().After(expiresAt)
	}
}

// readPassword reads a password without echo when in is a terminal and
// falls back to a plain line read for pipes and files
func readPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(in, out, prompt)
	}

	fmt.Fprint(out, prompt)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}

func promptLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return "", errors.New("no input")
}
