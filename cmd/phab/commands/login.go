package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
	"github.com/phorge-tools/conduit-client/pkg/phabclient"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var (
		apiEndpoint string
		token       string
		useArcRC    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a Conduit install",
		Long:  "Store a Conduit API token for an install after verifying it with user.whoami",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiEndpoint == "" {
				apiEndpoint = viper.GetString("api")
			}

			if apiEndpoint == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Install URL (e.g. phab.example.com): ")
				apiEndpoint, _ = reader.ReadString('\n')
				apiEndpoint = strings.TrimSpace(apiEndpoint)
			}

			if apiEndpoint == "" {
				return ErrEndpointRequired
			}

			skipTLS := viper.GetBool("skip_tls_validation")
			ctx := context.Background()

			var (
				client conduit.Client
				err    error
			)

			if useArcRC {
				// Reuse the credential arcanist already installed.
				client, err = phabclient.NewFromArcRC(ctx, apiEndpoint, "")
				if err != nil {
					return fmt.Errorf("failed to create client: %w", err)
				}
			} else {
				if token == "" {
					token = viper.GetString("token")
				}

				if token == "" {
					fmt.Print("API token (from Settings > Conduit API Tokens): ")

					byteToken, err := term.ReadPassword(int(syscall.Stdin))
					if err != nil {
						return fmt.Errorf("failed to read token: %w", err)
					}

					token = strings.TrimSpace(string(byteToken))

					fmt.Println()
				}

				err = conduit.ValidateToken(token)
				if err != nil {
					return err
				}

				client, err = phabclient.New(ctx, &conduit.Config{
					APIURL:        apiEndpoint,
					Token:         token,
					SkipTLSVerify: skipTLS,
				})
				if err != nil {
					return fmt.Errorf("failed to create client: %w", err)
				}
			}

			// Verify the credential before storing anything.
			who, err := client.Users().Whoami(ctx)
			if err != nil {
				return fmt.Errorf("failed to verify credential: %w", err)
			}

			configStruct := loadConfig()
			if configStruct.APIs == nil {
				configStruct.APIs = make(map[string]*APIConfig)
			}

			configKey := extractDomainFromEndpoint(apiEndpoint)

			apiConfig, exists := configStruct.APIs[configKey]
			if !exists {
				apiConfig = &APIConfig{}
				configStruct.APIs[configKey] = apiConfig
			}

			apiConfig.Endpoint = apiEndpoint
			apiConfig.Username = who.UserName
			apiConfig.SkipTLSValidation = skipTLS

			if !useArcRC {
				apiConfig.Token = token
			}

			// Set as current install if this is the first one
			if configStruct.CurrentAPI == "" || len(configStruct.APIs) == 1 {
				configStruct.CurrentAPI = configKey
			}

			err = saveConfigStruct(configStruct)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged in to %s as %s\n", apiEndpoint, who.UserName)

			return nil
		},
	}

	cmd.Flags().StringVarP(&apiEndpoint, "api", "a", "", "Conduit install URL")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Conduit API token")
	cmd.Flags().BoolVar(&useArcRC, "arcrc", false, "use the credential from ~/.arcrc instead of prompting")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the current install",
		Long:  "Clear the stored API token for the current install",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if config.CurrentAPI == "" {
				return ErrNoAPIsConfigured
			}

			apiConfig, exists := config.APIs[config.CurrentAPI]
			if !exists {
				return fmt.Errorf("%w in configuration: '%s'", ErrCurrentAPINotFound, config.CurrentAPI)
			}

			apiConfig.Token = ""

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Println("Successfully logged out")

			return nil
		},
	}
}
