// Package conduit provides types, interfaces, and helpers for working with
// the Phabricator/Phorge Conduit API.
//
// # Overview
//
// The conduit package defines the domain types (Task, Revision, Repository,
// File, Project, User) and the interfaces for application clients
// (ManiphestClient, DifferentialClient, DiffusionClient, and so on). A
// concrete implementation of these clients is provided by the phabclient
// package, which wires configuration, transport, credentials, caching, and
// response shaping. Most consumers should import phabclient to construct a
// client and then interact with the interfaces exposed here.
//
// Getting a client
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
//	  cli, err := phabclient.New(ctx, &conduit.Config{
//	    APIURL: "https://phab.example.com/api/",
//	    Token:  "api-abcdefghijklmnopqrstuvwxyz12",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  tasks, err := cli.Maniphest().SearchTasks(ctx, &conduit.SearchOptions{
//	    Constraints: map[string]any{"statuses": []string{"open"}},
//	    Limit:       10,
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = tasks
//	}
//
// # Searches and pagination
//
// Search operations take SearchOptions (builtin query key, constraint map,
// attachments, ordering, cursor, limit) and return a SearchResult with an
// opaque cursor. CursorIterator, FetchAllPages, and StreamPages drive
// multi-page fetches; full aggregation is bounded by a safety cap and fails
// with ResultTooLargeError rather than silently truncating.
//
// # Errors
//
// Every error surfaced by the client carries a machine-readable code
// (CodeOf) and a human-actionable suggestion (SuggestionOf). Result wraps
// either outcome into the {success, data | error} envelope used at tool
// boundaries.
//
// # Caching and shaping
//
// Idempotent reads are memoized by request fingerprint with TTL expiry and
// a single-flight guarantee; mutations invalidate their method namespace.
// Oversized payloads are bounded by the token-budget shaper (ShapeItems,
// ShapeText), which truncates at unit boundaries and leaves a continuation
// marker for the remainder.
package conduit
