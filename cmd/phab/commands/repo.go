package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// NewRepoCommand creates the repo command group.
func NewRepoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repo",
		Aliases: []string{"repos", "repository"},
		Short:   "Browse Diffusion repositories",
		Long:    "List repositories and browse their contents",
	}

	cmd.AddCommand(newRepoListCommand())
	cmd.AddCommand(newRepoBrowseCommand())
	cmd.AddCommand(newRepoCatCommand())

	return cmd
}

func newRepoListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories",
		Long:  "Search Diffusion repositories with optional constraints",
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

			result, err := client.Diffusion().SearchRepositories(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderRepositoryTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderRepositoryTable(repositories []conduit.Repository) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "VCS", "Status", "Callsign")

	for _, repository := range repositories {
		_ = table.Append(
			fmt.Sprintf("%d", repository.ID),
			repository.Fields.Name,
			repository.Fields.VCS,
			repository.Fields.Status,
			repository.Fields.Callsign,
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newRepoBrowseCommand() *cobra.Command {
	var commit string

	cmd := &cobra.Command{
		Use:   "browse REPOSITORY [PATH]",
		Short: "List a repository directory",
		Long:  "List the contents of a repository path at a commit (default HEAD)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			result, err := client.Diffusion().Browse(ctx, args[0], path, commit)
			if err != nil {
				return fmt.Errorf("failed to browse repository: %w", err)
			}

			return renderOutput(result, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Path", "Type")

				for _, entry := range result.Paths {
					kind := "file"
					if entry.FileType == 2 {
						kind = "dir"
					}

					_ = table.Append(entry.Path, kind)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				if result.ReachedLimit {
					fmt.Fprintln(os.Stderr, "Listing reached the server limit; narrow the path to see more.")
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&commit, "commit", "", "commit to browse at (default HEAD)")

	return cmd
}

func newRepoCatCommand() *cobra.Command {
	var (
		commit string
		budget int
	)

	cmd := &cobra.Command{
		Use:   "cat REPOSITORY PATH",
		Short: "Print file content",
		Long:  "Print the content of a file in a repository, shaped to the text budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			shaped, err := client.Diffusion().GetFileContent(ctx, args[0], args[1], commit, budget)
			if err != nil {
				return fmt.Errorf("failed to get file content: %w", err)
			}

			fmt.Print(shaped.Content)

			if shaped.Truncated {
				fmt.Fprintf(os.Stderr, "\nTruncated at byte %d of %d. %s\n",
					shaped.Continuation, shaped.OriginalLength, shaped.Suggestion)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&commit, "commit", "", "commit to read at (default HEAD)")
	cmd.Flags().IntVar(&budget, "budget", 0, "maximum bytes to print (negative disables shaping)")

	return cmd
}
