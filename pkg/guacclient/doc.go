// Package guacclient provides the primary entry point for constructing a
// Guacamole REST API client that implements the guac.Client interface.
//
// It layers configuration, HTTP transport, authentication and the per
// resource response caches on top of the interfaces and types defined in the
// guac package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/guacrest/pkg/guac"
//	  "github.com/fivetwenty-io/guacrest/pkg/guacclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := guacclient.New(ctx, &guac.Config{
//	    BaseURL:  "https://guac.example.com/guacamole",
//	    Username: "guacadmin",
//	    Password: "guacadmin",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  admins, err := cli.Users().List(ctx, "postgresql", guac.PermissionAdminister)
//	  if err != nil { log.Fatal(err) }
//	  _ = admins
//	}
//
// # Caching
//
// Every resource type (users, user groups, connections) owns one cache.
// Reads are served from it after the first fetch; any successful write to a
// resource type clears that type's cache for every data source. Use
// Config.Cache to pick the in-memory LRU (default), a NATS JetStream
// key-value bucket shared between processes, or no caching at all.
//
// # Errors
//
// Failures are reported as *guac.TransportError, *guac.AuthExpiredError,
// *guac.HTTPError or, for input rejected before any request, as
// *guac.ValidationError. On an AuthExpiredError the caller re-authenticates
// and retries; the client never retries on its own unless Config.RetryMax is
// set.
package guacclient
