package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phorge-tools/conduit-client/internal/constants"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
	"github.com/phorge-tools/conduit-client/pkg/phabclient"
)

// Static errors for err113 compliance.
var (
	ErrNoAPIsConfigured   = errors.New("no installs configured")
	ErrCurrentAPINotFound = errors.New("current install not found")
	ErrAPINotFound        = errors.New("install not found")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrEndpointRequired   = errors.New("API endpoint is required")
	ErrConstraintFormat   = errors.New("constraints must be KEY=VALUE pairs")
)

// createClientWithAPI builds a Conduit client for the install selected by
// the --api flag, falling back to the current install from config. A --token
// flag or CONDUIT_TOKEN overrides the stored credential.
func createClientWithAPI(ctx context.Context, apiFlag string) (conduit.Client, error) {
	apiConfig, err := getAPIConfigByFlag(apiFlag)
	if err != nil {
		return nil, err
	}

	if apiConfig.Endpoint == "" {
		return nil, fmt.Errorf("%w, use 'phab login' or --api", ErrEndpointRequired)
	}

	token := viper.GetString("token")
	if token == "" {
		token = apiConfig.Token
	}

	config := &conduit.Config{
		APIURL:        apiConfig.Endpoint,
		Token:         token,
		SkipTLSVerify: apiConfig.SkipTLSValidation || viper.GetBool("skip_tls_validation"),
		ItemBudget:    apiConfig.ItemBudget,
		TextBudget:    apiConfig.TextBudget,
	}

	client, err := phabclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// searchFlags holds the flags shared by every list command.
type searchFlags struct {
	queryKey    string
	constraints []string
	order       string
	limit       int
	budget      int
	after       string
}

func addSearchFlags(cmd *cobra.Command, flags *searchFlags) {
	cmd.Flags().StringVar(&flags.queryKey, "query", "", "builtin query key (open, all, authored, assigned, subscribed)")
	cmd.Flags().StringArrayVar(&flags.constraints, "constraint", nil, "search constraint as KEY=VALUE (repeatable; comma-separated values become lists)")
	cmd.Flags().StringVar(&flags.order, "order", "", "result order (newest, oldest, priority, ...)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "page size requested from the server")
	cmd.Flags().IntVar(&flags.budget, "budget", 0, "maximum items to display (negative disables shaping)")
	cmd.Flags().StringVar(&flags.after, "after", "", "resume after this pagination cursor")
}

// buildSearchOptions converts the shared list flags into search options.
func buildSearchOptions(flags *searchFlags) (*conduit.SearchOptions, error) {
	constraints, err := parseConstraints(flags.constraints)
	if err != nil {
		return nil, err
	}

	return &conduit.SearchOptions{
		QueryKey:    flags.queryKey,
		Constraints: constraints,
		Order:       flags.order,
		Limit:       flags.limit,
		After:       flags.after,
		ItemBudget:  flags.budget,
	}, nil
}

// parseConstraints turns repeated KEY=VALUE flags into a constraint map.
// Comma-separated values become lists, which is what most Conduit
// constraints (statuses, projects, assigned) expect.
func parseConstraints(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	constraints := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: '%s'", ErrConstraintFormat, pair)
		}

		if strings.Contains(value, ",") {
			constraints[key] = strings.Split(value, ",")
		} else {
			constraints[key] = []string{value}
		}
	}

	return constraints, nil
}

// renderOutput writes data in the configured output format, falling back to
// the provided table renderer.
func renderOutput(data any, renderTable func() error) error {
	output := viper.GetString("output")
	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(data)
	default:
		return renderTable()
	}
}

// notifyTruncated tells the user when the shaper trimmed a result set. The
// notice goes to stderr so piped output stays machine-readable.
func notifyTruncated(truncated bool, continuation int, suggestion string) {
	if !truncated {
		return
	}

	fmt.Fprintf(os.Stderr, "Result truncated at item %d. %s\n", continuation, suggestion)
}
