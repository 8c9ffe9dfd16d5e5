//go:build integration
// +build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
	"github.com/phorge-tools/conduit-client/pkg/phabclient"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	Endpoint    string
	Token       string
	AllowWrites bool
	Verbose     bool
	TestProject string
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Endpoint:    os.Getenv("CONDUIT_INTEGRATION_URL"),
		Token:       os.Getenv("CONDUIT_INTEGRATION_TOKEN"),
		AllowWrites: os.Getenv("CONDUIT_INTEGRATION_WRITE") == "true",
		Verbose:     os.Getenv("CONDUIT_VERBOSE") == "true",
		TestProject: os.Getenv("CONDUIT_INTEGRATION_PROJECT"),
	}
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.Endpoint == "" {
		t.Skip("CONDUIT_INTEGRATION_URL not set, skipping integration test")
	}

	if config.Token == "" {
		t.Skip("CONDUIT_INTEGRATION_TOKEN not set, skipping integration test")
	}
}

// SkipIfReadOnly skips tests that mutate the target install
func (config *TestConfig) SkipIfReadOnly(t *testing.T) {
	t.Helper()

	if !config.AllowWrites {
		t.Skip("CONDUIT_INTEGRATION_WRITE not set to true, skipping write test")
	}
}

// NewClient builds a client against the configured install
func (config *TestConfig) NewClient(t *testing.T) conduit.Client {
	t.Helper()

	client, err := phabclient.New(context.Background(), &conduit.Config{
		APIURL: config.Endpoint,
		Token:  config.Token,
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	return client
}

// GenerateTestName creates a unique name for test resources
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
