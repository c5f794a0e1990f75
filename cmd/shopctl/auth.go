package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/session"
)

func newAuthCmds() []*cobra.Command {
	var email, password, name string

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print an access token for --token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := session.New(newClient())
			if err := sess.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Println(sess.Token())
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := session.New(newClient())
			if err := sess.Register(cmd.Context(), email, password, name); err != nil {
				return err
			}
			fmt.Println(sess.Token())
			return nil
		},
	}
	registerCmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	registerCmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("password")

	return []*cobra.Command{loginCmd, registerCmd}
}
