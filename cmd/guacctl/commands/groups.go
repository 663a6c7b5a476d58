package commands

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewGroupsCommand creates the groups command group
func NewGroupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage user groups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List user groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			groups, err := sess.client.UserGroups().List(cmd.Context(), sess.dataSource)
			if err != nil {
				return fmt.Errorf("failed to list user groups: %w", err)
			}

			identifiers := make([]string, 0, len(groups))
			for identifier := range groups {
				identifiers = append(identifiers, identifier)
			}

			sort.Strings(identifiers)

			return renderOutput(cmd.OutOrStdout(), identifiers, func(table *tablewriter.Table) {
				table.Header("Identifier", "Disabled")

				for _, identifier := range identifiers {
					_ = table.Append([]string{identifier, formatValue(groups[identifier].Attributes[attributeDisabled])})
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete IDENTIFIER",
		Short: "Delete a user group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.client.UserGroups().Delete(cmd.Context(), sess.dataSource, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete user group: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted user group %s\n", args[0])

			return nil
		},
	})

	return cmd
}
