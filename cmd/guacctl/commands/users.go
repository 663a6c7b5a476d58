package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// Well known user attributes shown in tables.
const (
	attributeFullName = "guac-full-name"
	attributeEmail    = "guac-email-address"
	attributeDisabled = "disabled"
)

// NewUsersCommand creates the users command group
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage user accounts",
		Long:    "List, inspect, create, change and delete Guacamole user accounts",
	}

	cmd.AddCommand(newUsersListCommand())
	cmd.AddCommand(newUsersGetCommand())
	cmd.AddCommand(newUsersCreateCommand())
	cmd.AddCommand(newUsersDeleteCommand())
	cmd.AddCommand(newUsersPasswdCommand())
	cmd.AddCommand(newUsersPatchCommand())

	return cmd
}

func newUsersListCommand() *cobra.Command {
	var permissions []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  "List the users of the data source, optionally only those the current user holds a permission on",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			filters := make([]guac.PermissionType, 0, len(permissions))
			for _, permission := range permissions {
				filters = append(filters, guac.PermissionType(strings.ToUpper(permission)))
			}

			users, err := sess.client.Users().List(cmd.Context(), sess.dataSource, filters...)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			sorted := sortedUsers(users)

			return renderOutput(cmd.OutOrStdout(), sorted, func(table *tablewriter.Table) {
				table.Header("Username", "Full Name", "Email", "Disabled", "Last Active")

				for _, user := range sorted {
					_ = table.Append([]string{
						user.Username,
						formatValue(user.Attributes[attributeFullName]),
						formatValue(user.Attributes[attributeEmail]),
						formatValue(user.Attributes[attributeDisabled]),
						formatLastActive(user.LastActive),
					})
				}
			})
		},
	}

	cmd.Flags().StringSliceVar(&permissions, "permission", nil, "only users holding this permission (READ, UPDATE, DELETE, ADMINISTER)")

	return cmd
}

func newUsersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get USERNAME",
		Short: "Get user details",
		Long:  "Display the attributes of a single user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			user, err := sess.client.Users().Get(cmd.Context(), sess.dataSource, args[0])
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}

			return renderUser(cmd.OutOrStdout(), user)
		},
	}
}

func newUsersCreateCommand() *cobra.Command {
	var (
		promptPassword bool
		passwordStdin  bool
		attributes     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user",
		Long:  "Create a user, optionally prompting for its initial password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := guac.User{
				Username:   args[0],
				Attributes: attributes,
			}

			if promptPassword || passwordStdin {
				prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)

				password, err := prompt.readNewSecret("Password: ")
				if err != nil {
					return err
				}

				user.Password = password
			}

			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			created, err := sess.client.Users().Create(cmd.Context(), sess.dataSource, user)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			return renderUser(cmd.OutOrStdout(), created)
		},
	}

	cmd.Flags().BoolVar(&promptPassword, "password", false, "prompt for the initial password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the initial password twice from stdin")
	cmd.Flags().StringToStringVar(&attributes, "attribute", nil, "user attribute as KEY=VALUE (repeatable)")

	return cmd
}

func newUsersDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.client.Users().Delete(cmd.Context(), sess.dataSource, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted user %s\n", args[0])

			return nil
		},
	}
}

func newUsersPasswdCommand() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "passwd USERNAME",
		Short: "Change a user's password",
		Long:  "Change a user's password. The current password is required by the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)

			oldPassword, err := prompt.readSecret("Current password: ")
			if err != nil {
				return err
			}

			newPassword, err := prompt.readNewSecret("New password: ")
			if err != nil {
				return err
			}

			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.client.Users().UpdatePassword(cmd.Context(), sess.dataSource, args[0], oldPassword, newPassword)
			if err != nil {
				return fmt.Errorf("failed to change password: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully changed password of user %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read current, new and confirmed password from stdin, one per line")

	return cmd
}

func newUsersPatchCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Apply a patch set to users",
		Long:  "Apply an ordered JSON patch set to the users of the data source. Use --file - to read stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return constants.ErrPatchFileRequired
			}

			patches, err := readUserPatches(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.client.Users().Patch(cmd.Context(), sess.dataSource, patches)
			if err != nil {
				return fmt.Errorf("failed to patch users: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), result, func(table *tablewriter.Table) {
				table.Header("Op", "Path", "Identifier")

				for _, outcome := range result.Patches {
					_ = table.Append([]string{string(outcome.Op), outcome.Path, formatValue(outcome.Identifier)})
				}
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding the patch array")

	return cmd
}

func readUserPatches(stdin io.Reader, file string) ([]guac.Patch[guac.User], error) {
	var (
		data []byte
		err  error
	)

	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		// The path is supplied by the operator running the CLI.
		// #nosec G304
		data, err = os.ReadFile(file)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read patch file: %w", err)
	}

	var patches []guac.Patch[guac.User]

	err = json.Unmarshal(data, &patches)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch file: %w", err)
	}

	return patches, nil
}

func renderUser(writer io.Writer, user *guac.User) error {
	shown := *user
	shown.Password = ""

	return renderOutput(writer, shown, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append([]string{"Username", user.Username})
		_ = table.Append([]string{"Last Active", formatLastActive(user.LastActive)})

		keys := make([]string, 0, len(user.Attributes))
		for key := range user.Attributes {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			_ = table.Append([]string{key, formatValue(user.Attributes[key])})
		}
	})
}

func sortedUsers(users map[string]guac.User) []guac.User {
	sorted := make([]guac.User, 0, len(users))
	for _, user := range users {
		sorted = append(sorted, user)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Username < sorted[j].Username
	})

	return sorted
}

// formatLastActive renders a millisecond epoch timestamp.
func formatLastActive(lastActive int64) string {
	if lastActive == 0 {
		return constants.NotAvailable
	}

	return time.UnixMilli(lastActive).UTC().Format(time.RFC3339)
}
