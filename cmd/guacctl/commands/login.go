package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/guacrest/internal/auth"
	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guacclient"
)

// LoginResult describes a successful login.
type LoginResult struct {
	Username             string   `json:"username"               yaml:"username"`
	DataSource           string   `json:"data_source"            yaml:"data_source"`
	AvailableDataSources []string `json:"available_data_sources" yaml:"available_data_sources"`
}

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Guacamole",
		Long:  "Authenticate with username and password and store the session token in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Server == "" {
				return constants.ErrNoServerConfigured
			}

			prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)

			username := config.Username
			if username == "" {
				var err error

				username, err = prompt.readLine("Username: ")
				if err != nil {
					return err
				}

				username = strings.TrimSpace(username)
				if username == "" {
					return constants.ErrUsernameRequired
				}
			}

			password := config.Password
			if password == "" {
				var err error

				password, err = prompt.readSecret("Password: ")
				if err != nil {
					return err
				}
			}

			manager := auth.NewSessionTokenManager(&auth.SessionConfig{
				BaseURL:  guacclient.NormalizeBaseURL(config.Server),
				Username: username,
				Password: password,
			})

			_, err := manager.GetToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}

			token := manager.Session()

			viper.Set("token", token.AccessToken)
			viper.Set("username", token.Username)
			viper.Set("password", "")

			if config.DataSource == "" {
				viper.Set("data_source", token.DataSource)
			}

			err = saveConfig()
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			result := LoginResult{
				Username:             token.Username,
				DataSource:           viper.GetString("data_source"),
				AvailableDataSources: token.AvailableDataSources,
			}

			return renderOutput(cmd.OutOrStdout(), result, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Username", formatValue(result.Username))
				_ = table.Append("Data Source", formatValue(result.DataSource))
				_ = table.Append("Available Data Sources", formatValue(strings.Join(result.AvailableDataSources, ", ")))
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of Guacamole",
		Long:  "Revoke the stored session token and remove it from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Server == "" {
				return constants.ErrNoServerConfigured
			}

			if config.Token == "" {
				return constants.ErrNotLoggedIn
			}

			manager := auth.NewSessionTokenManager(&auth.SessionConfig{
				BaseURL: guacclient.NormalizeBaseURL(config.Server),
			})
			manager.SetToken(config.Token, time.Time{})

			err := manager.Logout(cmd.Context())
			if err != nil {
				return err
			}

			viper.Set("token", "")

			err = saveConfig()
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")

			return nil
		},
	}
}
