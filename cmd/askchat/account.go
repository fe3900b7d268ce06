package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liliang-cn/askchat/internal/auth"
	"github.com/liliang-cn/askchat/internal/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the chat backend and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, zapcore.WarnLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			reader := auth.NewTermReader(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
			if username == "" {
				if username, err = reader.Prompt("Username: "); err != nil {
					return err
				}
			}

			var password string
			if passwordStdin {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				password = strings.TrimRight(string(data), "\r\n")
			} else if password, err = reader.PasswordPrompt("Password: "); err != nil {
				return err
			}

			if err := a.authenticator.Login(cmd.Context(), strings.TrimSpace(username), password); err != nil {
				var authErr *client.AuthRequiredError
				if errors.As(err, &authErr) {
					return errors.New("invalid username or password")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Login successful.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, zapcore.WarnLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authenticator.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, zapcore.WarnLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.client.UserInfo(cmd.Context())
			var authErr *client.AuthRequiredError
			if errors.As(err, &authErr) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (id %d)\n", info.Username, info.ID)
			if info.Email != "" {
				fmt.Fprintf(out, "email: %s\n", info.Email)
			}
			fmt.Fprintf(out, "active: %t, admin: %t\n", info.IsActive, info.IsAdmin)
			return nil
		},
	}
}
