package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewConnectionsCommand creates the connections command group
func NewConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"connection", "conn"},
		Short:   "Manage connections",
		Long:    "List, inspect and delete Guacamole connections",
	}

	cmd.AddCommand(newConnectionsListCommand())
	cmd.AddCommand(newConnectionsGetCommand())
	cmd.AddCommand(newConnectionsDeleteCommand())

	return cmd
}

func newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			connections, err := sess.client.Connections().List(cmd.Context(), sess.dataSource)
			if err != nil {
				return fmt.Errorf("failed to list connections: %w", err)
			}

			identifiers := make([]string, 0, len(connections))
			for identifier := range connections {
				identifiers = append(identifiers, identifier)
			}

			sort.Strings(identifiers)

			return renderOutput(cmd.OutOrStdout(), connections, func(table *tablewriter.Table) {
				table.Header("Identifier", "Name", "Protocol", "Parent", "Active")

				for _, identifier := range identifiers {
					connection := connections[identifier]
					_ = table.Append([]string{
						identifier,
						connection.Name,
						connection.Protocol,
						formatValue(connection.ParentIdentifier),
						strconv.Itoa(connection.ActiveConnections),
					})
				}
			})
		},
	}
}

func newConnectionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get IDENTIFIER",
		Short: "Get connection details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			connection, err := sess.client.Connections().Get(cmd.Context(), sess.dataSource, args[0])
			if err != nil {
				return fmt.Errorf("failed to get connection: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), connection, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append([]string{"Identifier", connection.Identifier})
				_ = table.Append([]string{"Name", connection.Name})
				_ = table.Append([]string{"Protocol", connection.Protocol})
				_ = table.Append([]string{"Parent", formatValue(connection.ParentIdentifier)})
				_ = table.Append([]string{"Active Connections", strconv.Itoa(connection.ActiveConnections)})
				_ = table.Append([]string{"Last Active", formatLastActive(connection.LastActive)})
			})
		},
	}
}

func newConnectionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete IDENTIFIER",
		Short: "Delete a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.client.Connections().Delete(cmd.Context(), sess.dataSource, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete connection: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted connection %s\n", args[0])

			return nil
		},
	}
}
