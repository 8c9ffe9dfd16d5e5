package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// NewFileCommand creates the file command group.
func NewFileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "file",
		Aliases: []string{"files"},
		Short:   "Manage stored files",
		Long:    "List, download, and upload files",
	}

	cmd.AddCommand(newFileListCommand())
	cmd.AddCommand(newFileDownloadCommand())
	cmd.AddCommand(newFileUploadCommand())

	return cmd
}

func newFileListCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Long:  "Search stored files with optional constraints",
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

			result, err := client.Files().SearchFiles(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list files: %w", err)
			}

			notifyTruncated(result.Truncated, result.Continuation, result.Suggestion)

			return renderOutput(result, func() error {
				return renderFileTable(result.Data)
			})
		},
	}

	addSearchFlags(cmd, &flags)

	return cmd
}

func renderFileTable(files []conduit.File) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Size", "PHID")

	for _, file := range files {
		_ = table.Append(
			fmt.Sprintf("%d", file.ID),
			file.Fields.Name,
			fmt.Sprintf("%d", file.Fields.Size),
			file.PHID,
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newFileDownloadCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download PHID",
		Short: "Download a file",
		Long:  "Download a stored file by PHID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			content, err := client.Files().Download(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to download file: %w", err)
			}

			if outputPath == "" || outputPath == "-" {
				_, err = os.Stdout.Write(content)

				return err
			}

			err = os.WriteFile(outputPath, content, 0o600)
			if err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}

			fmt.Printf("Wrote %d bytes to %s\n", len(content), outputPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output-file", "o", "", "destination path (default stdout)")

	return cmd
}

func newFileUploadCommand() *cobra.Command {
	var (
		name       string
		viewPolicy string
	)

	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a file",
		Long:  "Upload a local file to the install's file storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The path comes from the operator's own command line.
			// #nosec G304
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			if name == "" {
				name = filepath.Base(args[0])
			}

			ctx := context.Background()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			phid, err := client.Files().Upload(ctx, name, content, viewPolicy)
			if err != nil {
				return fmt.Errorf("failed to upload file: %w", err)
			}

			fmt.Printf("Uploaded %s as %s\n", name, phid)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "stored file name (default basename of PATH)")
	cmd.Flags().StringVar(&viewPolicy, "view-policy", "", "view policy (public, users, or a PHID)")

	return cmd
}
