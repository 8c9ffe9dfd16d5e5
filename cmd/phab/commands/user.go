package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// NewUserCommand creates the user command group.
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Look up users",
		Long:    "List users and show the identity behind the current credential",
	}

	cmd.AddCommand(newUserListCommand())
	cmd.AddCommand(newUserWhoamiCommand())

	return cmd
}

func newUserListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  "Search users with optional constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildSearchOptions(&flags)
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			result, err := client.Users().SearchUsers(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderUserTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderUserTable(users []conduit.User) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Username", "Real Name", "Roles")

	for _, user := range users {
		_ = table.Append(
			fmt.Sprintf("%d", user.ID),
			user.Fields.Username,
			user.Fields.RealName,
			strings.Join(user.Fields.Roles, ", "),
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newUserWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Long:  "Show the identity behind the configured credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			who, err := client.Users().Whoami(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve identity: %w", err)
			}

			return renderOutput(who, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Username", who.UserName)
				_ = table.Append("Real Name", who.RealName)
				_ = table.Append("PHID", who.PHID)
				_ = table.Append("Email", who.PrimaryEmail)
				_ = table.Append("Roles", strings.Join(who.Roles, ", "))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}
