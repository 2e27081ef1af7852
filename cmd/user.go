package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

// userAddCmd creates an API user and prints its bearer token
var userAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Create an API user and print its token",
	Example: `  # Create a user and print the bearer token
  tutorly user add alice --email alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DataBackend != "postgres" {
			return fmt.Errorf("user add needs a persistent store; set data_backend = \"postgres\"")
		}

		ctx := cmd.Context()
		logr := cliLogger()
		store, closeStore, err := openStore(ctx, logr)
		if err != nil {
			return err
		}
		defer closeStore()

		email, _ := cmd.Flags().GetString("email")
		app := internal.NewApp(config, store, internal.WithLogger(logr))
		user, token, err := app.CreateUser(ctx, args[0], email)
		if err != nil {
			return err
		}

		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("The token is shown only once.")
		return nil
	},
}

func init() {
	userAddCmd.Flags().String("email", "", "Email address")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
