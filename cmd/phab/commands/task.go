package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage Maniphest tasks",
		Long:    "List, inspect, create, and update Maniphest tasks",
	}

	cmd.AddCommand(newTaskListCommand())
	cmd.AddCommand(newTaskGetCommand())
	cmd.AddCommand(newTaskCreateCommand())
	cmd.AddCommand(newTaskCommentCommand())
	cmd.AddCommand(newTaskCloseCommand())

	return cmd
}

func newTaskListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "Search Maniphest tasks with optional constraints",
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

			result, err := client.Maniphest().SearchTasks(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderTaskTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderTaskTable(tasks []conduit.Task) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "Status", "Priority", "Owner")

	for _, task := range tasks {
		_ = table.Append(
			fmt.Sprintf("T%d", task.ID),
			task.Fields.Name,
			task.Fields.Status.Name,
			task.Fields.Priority.Name,
			task.Fields.OwnerPHID,
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newTaskGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TASK [TASK...]",
		Short: "Show one or more tasks",
		Long:  "Show tasks by numeric ID or T-monogram (e.g. T123). Multiple tasks are fetched concurrently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskIDs := make([]int, len(args))

			for i, arg := range args {
				taskID, err := conduit.ParseTaskIdentifier(arg)
				if err != nil {
					return err
				}

				taskIDs[i] = taskID
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			if len(taskIDs) > 1 {
				results := conduit.FetchTasks(ctx, client, taskIDs)

				tasks := make([]conduit.Task, 0, len(results))

				for i, result := range results {
					if result.Err != nil {
						return fmt.Errorf("failed to get task T%d: %w", taskIDs[i], result.Err)
					}

					tasks = append(tasks, *result.Value)
				}

				return renderOutput(tasks, func() error {
					return renderTaskTable(tasks)
				})
			}

			task, err := client.Maniphest().GetTask(ctx, taskIDs[0])
			if err != nil {
				return fmt.Errorf("failed to get task: %w", err)
			}

			return renderOutput(task, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("ID", fmt.Sprintf("T%d", task.ID))
				_ = table.Append("Title", task.Fields.Name)
				_ = table.Append("Status", task.Fields.Status.Name)
				_ = table.Append("Priority", task.Fields.Priority.Name)
				_ = table.Append("Author", task.Fields.AuthorPHID)
				_ = table.Append("Owner", task.Fields.OwnerPHID)
				_ = table.Append("Description", task.Fields.Description.Raw)

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}

func newTaskCreateCommand() *cobra.Command {
	var (
		title       string
		description string
		owner       string
		priority    int
		projects    []string
		subscribers []string
		viewPolicy  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long:  "Create a new Maniphest task",
		RunE: func(cmd *cobra.Command, args []string) error {
			request := &conduit.TaskCreateRequest{
				Title:        title,
				Description:  description,
				OwnerPHID:    owner,
				ProjectPHIDs: projects,
				CCPHIDs:      subscribers,
				ViewPolicy:   viewPolicy,
			}

			if cmd.Flags().Changed("priority") {
				request.Priority = &priority
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			result, err := client.Maniphest().CreateTask(ctx, request)
			if err != nil {
				return fmt.Errorf("failed to create task: %w", err)
			}

			fmt.Printf("Created task T%d (%s)\n", result.Object.ID, result.Object.PHID)

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description in remarkup")
	cmd.Flags().StringVar(&owner, "owner", "", "owner user PHID")
	cmd.Flags().IntVar(&priority, "priority", 0, "task priority (0-100)")
	cmd.Flags().StringArrayVar(&projects, "project", nil, "project PHID to tag (repeatable)")
	cmd.Flags().StringArrayVar(&subscribers, "cc", nil, "subscriber user PHID (repeatable)")
	cmd.Flags().StringVar(&viewPolicy, "view-policy", "", "view policy (public, users, or a PHID)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTaskCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment TASK TEXT",
		Short: "Comment on a task",
		Long:  "Add a comment to a Maniphest task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := conduit.ParseTaskIdentifier(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			_, err = client.Maniphest().EditTask(ctx, "T"+strconv.Itoa(taskID), []conduit.Transaction{
				{Type: "comment", Value: args[1]},
			})
			if err != nil {
				return fmt.Errorf("failed to comment on task: %w", err)
			}

			fmt.Printf("Commented on T%d\n", taskID)

			return nil
		},
	}
}

func newTaskCloseCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "close TASK",
		Short: "Close a task",
		Long:  "Move a Maniphest task to a closed status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := conduit.ParseTaskIdentifier(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			_, err = client.Maniphest().EditTask(ctx, "T"+strconv.Itoa(taskID), []conduit.Transaction{
				{Type: "status", Value: status},
			})
			if err != nil {
				return fmt.Errorf("failed to close task: %w", err)
			}

			fmt.Printf("Closed T%d as %s\n", taskID, status)

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "resolved", "closed status (resolved, wontfix, invalid, duplicate)")

	return cmd
}
