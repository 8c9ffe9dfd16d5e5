// Package phabclient provides the primary entry point for constructing a
// Conduit API client that implements the conduit.Client interface.
//
// It layers configuration, HTTP transport, credential resolution, and
// response caching on top of the application interfaces and types defined in
// the conduit package. Most applications should import phabclient to build a
// client, then use the returned conduit.Client to access application-specific
// clients, for example Maniphest(), Differential(), Diffusion(), etc.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/phorge-tools/conduit-client/pkg/conduit"
//	  "github.com/phorge-tools/conduit-client/pkg/phabclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // With an API token you already have:
//	  cli, err := phabclient.New(ctx, &conduit.Config{
//	    APIURL: "https://phab.example.com/api/",
//	    Token:  "api-abcdefghijklmnopqrstuvwxyz12",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Or multi-tenant: no fixed token, each call carries its own.
//	  cli, err = phabclient.NewWithEndpoint(ctx, "phab.example.com")
//	  if err != nil { log.Fatal(err) }
//	  ctx = conduit.WithToken(ctx, "api-abcdefghijklmnopqrstuvwxyz12")
//
//	  // Use application clients via the conduit.Client interface
//	  tasks, err := cli.Maniphest().SearchTasks(ctx, &conduit.SearchOptions{
//	    Constraints: map[string]any{"statuses": []string{"open"}},
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = tasks
//	}
//
// # Endpoint normalization
//
// Endpoints may be given as a bare hostname; "https://" and the "/api/"
// suffix every Conduit install serves under are filled in automatically.
//
// # TLS and development mode
//
// For local development, you can set Config.SkipTLSVerify=true. This is
// gated by the environment variable CONDUIT_DEV_MODE to avoid accidental
// insecure usage in production environments.
//
// # Helpers
//
// The package also provides convenience constructors NewWithEndpoint,
// NewWithToken, and NewFromArcRC that wrap New with the appropriate
// configuration.
package phabclient
