package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

// NewPingCommand creates the ping command
func NewPingCommand() *cobra.Command {
	var showCapabilities bool

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the install",
		Long:  "Call conduit.ping on the targeted install and report the server hostname",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A health probe should answer quickly or not at all.
			ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
			defer cancel()

			client, err := createClientWithAPI(ctx, cmd.Flag("api").Value.String())
			if err != nil {
				return err
			}

			hostname, err := client.Meta().Ping(ctx)
			if err != nil {
				return fmt.Errorf("failed to reach install: %w", err)
			}

			if !showCapabilities {
				fmt.Printf("OK: %s\n", hostname)

				return nil
			}

			capabilities, err := client.Meta().GetCapabilities(ctx)
			if err != nil {
				return fmt.Errorf("failed to get capabilities: %w", err)
			}

			type pingResult struct {
				Hostname       string   `json:"hostname"       yaml:"hostname"`
				Authentication []string `json:"authentication" yaml:"authentication"`
				Input          []string `json:"input"          yaml:"input"`
				Output         []string `json:"output"         yaml:"output"`
			}

			result := pingResult{
				Hostname:       hostname,
				Authentication: capabilities.Authentication,
				Input:          capabilities.Input,
				Output:         capabilities.Output,
			}

			return renderOutput(result, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Hostname", hostname)
				_ = table.Append("Authentication", strings.Join(capabilities.Authentication, ", "))
				_ = table.Append("Input", strings.Join(capabilities.Input, ", "))
				_ = table.Append("Output", strings.Join(capabilities.Output, ", "))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showCapabilities, "capabilities", false, "also report server capabilities")

	return cmd
}
