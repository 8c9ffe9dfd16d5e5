package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
		Long:    "List and create projects",
	}

	cmd.AddCommand(newProjectListCommand())
	cmd.AddCommand(newProjectCreateCommand())

	return cmd
}

func newProjectListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  "Search projects with optional constraints",
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

			result, err := client.Projects().SearchProjects(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderProjectTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderProjectTable(projects []conduit.Project) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Slug", "Icon")

	for _, project := range projects {
		_ = table.Append(
			fmt.Sprintf("%d", project.ID),
			project.Fields.Name,
			project.Fields.Slug,
			project.Fields.Icon.Key,
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newProjectCreateCommand() *cobra.Command {
	var (
		name        string
		description string
		icon        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Long:  "Create a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			transactions := []conduit.Transaction{
				{Type: "name", Value: name},
			}

			if description != "" {
				transactions = append(transactions, conduit.Transaction{Type: "description", Value: description})
			}

			if icon != "" {
				transactions = append(transactions, conduit.Transaction{Type: "icon", Value: icon})
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			result, err := client.Projects().EditProject(ctx, "", transactions)
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			fmt.Printf("Created project %d (%s)\n", result.Object.ID, result.Object.PHID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	cmd.Flags().StringVar(&icon, "icon", "", "project icon key")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
