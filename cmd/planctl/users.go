package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	// create
	var userId, email, displayName, tz string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userId == "" || email == "" || tz == "" {
				return fmt.Errorf("--userId, --email and --tz required")
			}
			payload := map[string]interface{}{"userId": userId, "email": email, "timeZone": tz}
			if displayName != "" {
				payload["displayName"] = displayName
			}
			return call(httpClient().R().SetBody(payload), http.MethodPost, "/api/users")
		},
	}
	createCmd.Flags().StringVar(&userId, "userId", "", "UserID (required)")
	createCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	createCmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name")
	createCmd.Flags().StringVarP(&tz, "tz", "t", "", "IANA time zone (required)")
	_ = createCmd.MarkFlagRequired("userId")
	usersCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(httpClient().R(), http.MethodGet, "/api/users/"+args[0])
		},
	}
	usersCmd.AddCommand(getCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(httpClient().R(), http.MethodDelete, "/api/users/"+args[0])
		},
	}
	usersCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(usersCmd)
}
