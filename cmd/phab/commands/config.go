package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

// Config represents the CLI configuration.
type Config struct {
	// Multi-install configuration
	APIs       map[string]*APIConfig `json:"apis,omitempty"        yaml:"apis,omitempty"`
	CurrentAPI string                `json:"current_api,omitempty" yaml:"current_api,omitempty"`

	// Global settings
	Output string `json:"output" yaml:"output"`
}

// APIConfig represents configuration for a single Conduit install.
type APIConfig struct {
	Endpoint          string `json:"endpoint"              yaml:"endpoint"`
	Token             string `json:"token,omitempty"       yaml:"token,omitempty"`
	Username          string `json:"username,omitempty"    yaml:"username,omitempty"`
	SkipTLSValidation bool   `json:"skip_tls_validation"   yaml:"skip_tls_validation"`
	ItemBudget        int    `json:"item_budget,omitempty" yaml:"item_budget,omitempty"`
	TextBudget        int    `json:"text_budget,omitempty" yaml:"text_budget,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage phab CLI configuration including installs and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(redactedConfig(config))
			case constants.FormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(redactedConfig(config))
			default:
				return displayConfigTable(config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var apiFlag string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a specific configuration value (global or install-specific)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			config := loadConfig()

			if apiFlag != "" {
				return setAPISpecificConfig(config, apiFlag, key, value)
			}

			return setGlobalConfig(config, key, value)
		},
	}

	cmd.Flags().StringVar(&apiFlag, "api", "", "target specific install for configuration")

	return cmd
}

func newConfigUnsetCommand() *cobra.Command {
	var apiFlag string

	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a specific configuration value (global or install-specific)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			if apiFlag != "" {
				return setAPISpecificConfig(config, apiFlag, key, "")
			}

			return setGlobalConfig(config, key, "")
		},
	}

	cmd.Flags().StringVar(&apiFlag, "api", "", "target specific install for configuration")

	return cmd
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := viper.ConfigFileUsed()
			if configFile == "" {
				home, _ := os.UserHomeDir()
				configFile = filepath.Join(home, ".phab", "config.yml")
			}

			err := os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			fmt.Println("Configuration cleared")

			return nil
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		Output:     viper.GetString("output"),
		CurrentAPI: viper.GetString("current_api"),
		APIs:       make(map[string]*APIConfig),
	}

	raw := viper.GetStringMap("apis")
	for domain, value := range raw {
		apiMap, ok := value.(map[string]interface{})
		if !ok {
			continue
		}

		config.APIs[domain] = parseAPIConfig(apiMap)
	}

	return config
}

func parseAPIConfig(apiMap map[string]interface{}) *APIConfig {
	apiConfig := &APIConfig{}

	if endpoint, ok := apiMap["endpoint"].(string); ok {
		apiConfig.Endpoint = endpoint
	}

	if token, ok := apiMap["token"].(string); ok {
		apiConfig.Token = token
	}

	if username, ok := apiMap["username"].(string); ok {
		apiConfig.Username = username
	}

	if skip, ok := apiMap["skip_tls_validation"].(bool); ok {
		apiConfig.SkipTLSValidation = skip
	}

	if budget, ok := apiMap["item_budget"].(int); ok {
		apiConfig.ItemBudget = budget
	}

	if budget, ok := apiMap["text_budget"].(int); ok {
		apiConfig.TextBudget = budget
	}

	return apiConfig
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".phab")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// extractDomainFromEndpoint extracts the domain portion from a Conduit
// endpoint for use as the install's config key.
func extractDomainFromEndpoint(endpoint string) string {
	domain := endpoint
	if strings.HasPrefix(domain, "https://") {
		domain = strings.TrimPrefix(domain, "https://")
	} else if strings.HasPrefix(domain, "http://") {
		domain = strings.TrimPrefix(domain, "http://")
	}

	if idx := strings.Index(domain, "/"); idx != -1 {
		domain = domain[:idx]
	}

	if idx := strings.Index(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}

	return domain
}

// getCurrentAPIConfig returns the configuration for the currently targeted
// install.
func getCurrentAPIConfig() (*APIConfig, error) {
	config := loadConfig()

	if config.CurrentAPI == "" {
		if len(config.APIs) == 0 {
			return nil, fmt.Errorf("%w, use 'phab login' to add one", ErrNoAPIsConfigured)
		}

		for domain := range config.APIs {
			config.CurrentAPI = domain

			break
		}
	}

	apiConfig, exists := config.APIs[config.CurrentAPI]
	if !exists {
		return nil, fmt.Errorf("%w in configuration: '%s'", ErrCurrentAPINotFound, config.CurrentAPI)
	}

	return apiConfig, nil
}

// getAPIConfigByFlag returns the install config for the --api flag value, or
// the current install when the flag is empty. An unknown flag value is
// treated as a direct endpoint.
func getAPIConfigByFlag(apiFlag string) (*APIConfig, error) {
	if apiFlag == "" {
		return getCurrentAPIConfig()
	}

	config := loadConfig()

	if apiConfig, exists := config.APIs[apiFlag]; exists {
		return apiConfig, nil
	}

	for _, apiConfig := range config.APIs {
		if apiConfig.Endpoint == apiFlag {
			return apiConfig, nil
		}
	}

	return &APIConfig{Endpoint: apiFlag}, nil
}

func setGlobalConfig(config *Config, key, value string) error {
	switch key {
	case "output":
		config.Output = value
	case "current_api", "api":
		config.CurrentAPI = value
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownConfigKey, key)
	}

	err := saveConfigStruct(config)
	if err != nil {
		return err
	}

	fmt.Printf("Set %s\n", key)

	return nil
}

func setAPISpecificConfig(config *Config, apiDomain, key, value string) error {
	apiConfig, exists := config.APIs[apiDomain]
	if !exists {
		return fmt.Errorf("%w: '%s'", ErrAPINotFound, apiDomain)
	}

	switch key {
	case "endpoint":
		apiConfig.Endpoint = value
	case "token":
		apiConfig.Token = value
	case "username":
		apiConfig.Username = value
	case "skip_tls_validation":
		apiConfig.SkipTLSValidation = value == "true" || value == "1"
	case "item_budget":
		budget, err := strconv.Atoi(value)
		if err != nil && value != "" {
			return fmt.Errorf("parsing item_budget: %w", err)
		}

		apiConfig.ItemBudget = budget
	case "text_budget":
		budget, err := strconv.Atoi(value)
		if err != nil && value != "" {
			return fmt.Errorf("parsing text_budget: %w", err)
		}

		apiConfig.TextBudget = budget
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownConfigKey, key)
	}

	err := saveConfigStruct(config)
	if err != nil {
		return err
	}

	fmt.Printf("Set %s for %s\n", key, apiDomain)

	return nil
}

// redactedConfig returns a copy safe for display. Tokens never reach stdout.
func redactedConfig(config *Config) *Config {
	redacted := &Config{
		CurrentAPI: config.CurrentAPI,
		Output:     config.Output,
		APIs:       make(map[string]*APIConfig, len(config.APIs)),
	}

	for domain, apiConfig := range config.APIs {
		clone := *apiConfig
		if clone.Token != "" {
			clone.Token = "(set)"
		}

		redacted.APIs[domain] = &clone
	}

	return redacted
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Install", "Endpoint", "User", "Token", "Current")

	for domain, apiConfig := range config.APIs {
		tokenState := ""
		if apiConfig.Token != "" {
			tokenState = "(set)"
		}

		current := ""
		if domain == config.CurrentAPI {
			current = "*"
		}

		_ = table.Append(domain, apiConfig.Endpoint, apiConfig.Username, tokenState, current)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
