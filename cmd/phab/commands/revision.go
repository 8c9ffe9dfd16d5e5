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

// NewRevisionCommand creates the revision command group.
func NewRevisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "revision",
		Aliases: []string{"revisions", "diff"},
		Short:   "Manage Differential revisions",
		Long:    "List, inspect, review, and comment on Differential revisions",
	}

	cmd.AddCommand(newRevisionListCommand())
	cmd.AddCommand(newRevisionGetCommand())
	cmd.AddCommand(newRevisionAcceptCommand())
	cmd.AddCommand(newRevisionCommentCommand())
	cmd.AddCommand(newRevisionRawDiffCommand())

	return cmd
}

func newRevisionListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List revisions",
		Long:  "Search Differential revisions with optional constraints",
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

			result, err := client.Differential().SearchRevisions(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list revisions: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderRevisionTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderRevisionTable(revisions []conduit.Revision) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "Status", "Author")

	for _, revision := range revisions {
		_ = table.Append(
			fmt.Sprintf("D%d", revision.ID),
			revision.Fields.Title,
			revision.Fields.Status.Name,
			revision.Fields.AuthorPHID,
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newRevisionGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get REVISION [REVISION...]",
		Short: "Show one or more revisions",
		Long:  "Show revisions by numeric ID or D-monogram (e.g. D456). Multiple revisions are fetched concurrently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionIDs := make([]int, len(args))

			for i, arg := range args {
				revisionID, err := conduit.ParseRevisionIdentifier(arg)
				if err != nil {
					return err
				}

				revisionIDs[i] = revisionID
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			if len(revisionIDs) > 1 {
				results := conduit.FetchRevisions(ctx, client, revisionIDs)

				revisions := make([]conduit.Revision, 0, len(results))

				for i, result := range results {
					if result.Err != nil {
						return fmt.Errorf("failed to get revision D%d: %w", revisionIDs[i], result.Err)
					}

					revisions = append(revisions, *result.Value)
				}

				return renderOutput(revisions, func() error {
					return renderRevisionTable(revisions)
				})
			}

			revision, err := client.Differential().GetRevision(ctx, revisionIDs[0])
			if err != nil {
				return fmt.Errorf("failed to get revision: %w", err)
			}

			return renderOutput(revision, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("ID", fmt.Sprintf("D%d", revision.ID))
				_ = table.Append("Title", revision.Fields.Title)
				_ = table.Append("Status", revision.Fields.Status.Name)
				_ = table.Append("Author", revision.Fields.AuthorPHID)
				_ = table.Append("Summary", revision.Fields.Summary)
				_ = table.Append("Test Plan", revision.Fields.TestPlan)
				_ = table.Append("URI", revision.Fields.URI)

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}

func newRevisionAcceptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accept REVISION",
		Short: "Accept a revision",
		Long:  "Accept a Differential revision as a reviewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := conduit.ParseRevisionIdentifier(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			_, err = client.Differential().EditRevision(ctx, "D"+strconv.Itoa(revisionID), []conduit.Transaction{
				{Type: "accept", Value: true},
			})
			if err != nil {
				return fmt.Errorf("failed to accept revision: %w", err)
			}

			fmt.Printf("Accepted D%d\n", revisionID)

			return nil
		},
	}
}

func newRevisionCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment REVISION TEXT",
		Short: "Comment on a revision",
		Long:  "Add a comment to a Differential revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := conduit.ParseRevisionIdentifier(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			_, err = client.Differential().AddComment(ctx, "D"+strconv.Itoa(revisionID), args[1])
			if err != nil {
				return fmt.Errorf("failed to comment on revision: %w", err)
			}

			fmt.Printf("Commented on D%d\n", revisionID)

			return nil
		},
	}
}

func newRevisionRawDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw-diff DIFF_ID",
		Short: "Print a raw diff",
		Long:  "Print the raw unified diff for a Differential diff ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diffID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parsing diff ID: %w", err)
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			rawDiff, err := client.Differential().GetRawDiff(ctx, diffID)
			if err != nil {
				return fmt.Errorf("failed to get raw diff: %w", err)
			}

			fmt.Print(rawDiff)

			return nil
		},
	}
}
