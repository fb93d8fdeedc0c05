package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token used for every request",
	Long: `Store the bearer token used for every request.

Without --token the token is read from the first line of stdin:
  pass show erp/token | tempo login`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := loginToken
		if token == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("no token given: use --token or pipe it on stdin")
			}
			token = strings.TrimSpace(line)
		}

		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session.Login(token); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if claims, err := a.Session.Claims(); err == nil && claims.Subject != "" {
			fmt.Fprintf(out, "Signed in as %s\n", claims.Subject)
			return nil
		}
		fmt.Fprintln(out, "Signed in")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user from the token's claims",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(false)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if _, err := a.Session.Token(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Session:  %s\n", a.Session.State())

		claims, err := a.Session.Claims()
		if err != nil {
			return nil
		}
		if claims.Subject != "" {
			fmt.Fprintf(out, "Subject:  %s\n", claims.Subject)
		}
		if claims.Name != "" {
			fmt.Fprintf(out, "Name:     %s\n", claims.Name)
		}
		if claims.Email != "" {
			fmt.Fprintf(out, "Email:    %s\n", claims.Email)
		}
		if !claims.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Expires:  %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token")
}
