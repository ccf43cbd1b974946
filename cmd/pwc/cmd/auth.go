package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		Example: `  pwc register --email me@example.com --password secret-pass
  pwc register --email me@example.com --password secret-pass --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			c := newClient()
			acct, err := c.Register(context.Background(), email, password)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(acct)
			}
			if acct.Activated {
				fmt.Printf("Account created: %s\n", acct.Email)
			} else {
				fmt.Printf("Account created: %s (check your inbox for the activation link)\n", acct.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func loginCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access token",
		Long: "Log in with email and password and print the access token.\n" +
			"Export it as PWC_TOKEN or pass it via --token on later commands.",
		Example: `  export PWC_TOKEN=$(pwc login --email me@example.com --password secret-pass)`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			c := newClient()
			token, err := c.Login(context.Background(), email, password)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}
