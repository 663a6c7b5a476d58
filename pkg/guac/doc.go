// Package guac provides types, interfaces, and helpers for working with the
// Apache Guacamole REST API.
//
// # Overview
//
// The guac package defines the directory resource types (User, UserGroup,
// Connection), the patch types used for atomic batch changes, and the
// interfaces of the resource clients (UsersClient, UserGroupsClient,
// ConnectionsClient). A concrete implementation is provided by the guacclient
// package, which wires configuration, transport, authentication and caching.
//
// Getting a client
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
//	  cli, err := guacclient.NewWithToken(ctx, "https://guac.example.com/guacamole", token)
//	  if err != nil { log.Fatal(err) }
//
//	  users, err := cli.Users().List(ctx, guac.DataSourceDefault)
//	  if err != nil { log.Fatal(err) }
//	  _ = users
//	}
//
// # Patches
//
// A patch set is applied by the server as one unit: every patch succeeds or
// none does. Build patch sets with AddPatch, ReplacePatch and RemovePatch:
//
//	result, err := cli.Users().Patch(ctx, "postgresql", []guac.Patch[guac.User]{
//	  guac.AddPatch(guac.User{Username: "carol", Password: "changeit"}),
//	  guac.RemovePatch[guac.User]("bob"),
//	})
//
// # Caching
//
// The Cache interface has three backends: MemoryCache (LRU), NATSKVCache
// (JetStream key-value) and NoOpCache. Build one per resource type with
// NewCacheFromConfig or CacheBuilder.
//
// # Errors
//
// Failures are one of TransportError, AuthExpiredError, HTTPError or
// ValidationError. Use IsNotFound, IsForbidden, IsAuthExpired, IsValidation,
// IsTransport and StatusCode to inspect them.
package guac
