package resource_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/guacrest/internal/auth"
	internalhttp "github.com/fivetwenty-io/guacrest/internal/http"
	"github.com/fivetwenty-io/guacrest/internal/resource"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

var errBackendDown = errors.New("backend down")

// recorder captures every request the fake server receives.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   []byte
}

func (r *recorder) add(req recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]recordedRequest(nil), r.requests...)
}

func (r *recorder) count() int {
	return len(r.all())
}

func newServer(t *testing.T, rec *recorder, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body := make([]byte, 0)
		if request.Body != nil {
			decoded := json.RawMessage{}
			if json.NewDecoder(request.Body).Decode(&decoded) == nil {
				body = decoded
			}
		}

		rec.add(recordedRequest{
			Method: request.Method,
			Path:   request.URL.EscapedPath(),
			Query:  request.URL.RawQuery,
			Token:  request.Header.Get(guac.TokenHeader),
			Body:   body,
		})

		handler(writer, request)
	}))
	t.Cleanup(server.Close)

	return server
}

func newUsers(t *testing.T, server *httptest.Server, cache guac.Cache) *resource.Client[guac.User] {
	t.Helper()

	dispatcher := internalhttp.NewClient(server.URL+"/guacamole", auth.NewStaticTokenManager("T"))

	return resource.New(dispatcher, cache, "users", guac.UserKey)
}

func writeJSON(writer http.ResponseWriter, status int, value interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(value)
}

func userList() map[string]guac.User {
	return map[string]guac.User{
		"alice": {Username: "alice"},
		"bob":   {Username: "bob"},
	}
}

// countingCache wraps a cache and counts Clear calls.
type countingCache struct {
	guac.Cache

	clears atomic.Int32
	setErr error
}

func (c *countingCache) Clear(ctx context.Context) error {
	c.clears.Add(1)

	return c.Cache.Clear(ctx)
}

func (c *countingCache) Set(ctx context.Context, key string, entry *guac.CacheEntry) error {
	if c.setErr != nil {
		return c.setErr
	}

	return c.Cache.Set(ctx, key, entry)
}

func newCountingCache() *countingCache {
	return &countingCache{Cache: guac.NewMemoryCache(100)}
}

func TestClient_List(t *testing.T) {
	t.Parallel()

	t.Run("filtered list hits the permission query once then the cache", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, userList())
		})

		users := newUsers(t, server, newCountingCache())

		first, err := users.List(context.Background(), "default", guac.PermissionAdminister)
		require.NoError(t, err)

		second, err := users.List(context.Background(), "default", guac.PermissionAdminister)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Len(t, first, 2)

		requests := rec.all()
		require.Len(t, requests, 1)
		assert.Equal(t, http.MethodGet, requests[0].Method)
		assert.Equal(t, "/guacamole/api/session/data/default/users", requests[0].Path)
		assert.Equal(t, "permission=ADMINISTER", requests[0].Query)
		assert.Equal(t, "T", requests[0].Token)

		stats := users.Stats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(1), stats.Sets)
	})

	t.Run("filtered and unfiltered lists are cached separately", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Query().Get("permission") != "" {
				writeJSON(writer, http.StatusOK, map[string]guac.User{"alice": {Username: "alice"}})

				return
			}

			writeJSON(writer, http.StatusOK, userList())
		})

		users := newUsers(t, server, newCountingCache())

		all, err := users.List(context.Background(), "default")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		administered, err := users.List(context.Background(), "default", guac.PermissionAdminister)
		require.NoError(t, err)
		assert.Len(t, administered, 1)

		requests := rec.all()
		require.Len(t, requests, 2)
		assert.Empty(t, requests[0].Query)
	})

	t.Run("multiple permissions are all sent", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, map[string]guac.User{})
		})

		users := newUsers(t, server, nil)

		_, err := users.List(context.Background(), "default", guac.PermissionUpdate, guac.PermissionDelete)
		require.NoError(t, err)

		assert.Equal(t, "permission=UPDATE&permission=DELETE", rec.all()[0].Query)
	})

	t.Run("failed reads are not cached", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				writeJSON(writer, http.StatusInternalServerError, guac.ErrorBody{Message: "boom", Type: guac.ErrorTypeInternalError})

				return
			}

			writeJSON(writer, http.StatusOK, userList())
		})

		users := newUsers(t, server, newCountingCache())

		_, err := users.List(context.Background(), "default")
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, guac.StatusCode(err))

		list, err := users.List(context.Background(), "default")
		require.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, 2, rec.count())
	})

	t.Run("cache population failure degrades to no caching", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, userList())
		})

		cache := newCountingCache()
		cache.setErr = errBackendDown

		users := newUsers(t, server, cache)

		for range 2 {
			list, err := users.List(context.Background(), "default")
			require.NoError(t, err)
			assert.Len(t, list, 2)
		}

		assert.Equal(t, 2, rec.count())
		assert.Equal(t, int64(0), users.Stats().Sets)
	})

	t.Run("undecodable response is an error", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_, _ = writer.Write([]byte("not json"))
		})

		users := newUsers(t, server, nil)

		_, err := users.List(context.Background(), "default")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing response")
	})
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	t.Run("keys are escaped as one path segment", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, guac.User{Username: "a/b"})
		})

		users := newUsers(t, server, newCountingCache())

		user, err := users.Get(context.Background(), "default", "a/b")
		require.NoError(t, err)
		assert.Equal(t, "a/b", user.Username)

		_, err = users.Get(context.Background(), "default", "a b")
		require.NoError(t, err)

		requests := rec.all()
		require.Len(t, requests, 2)
		assert.Equal(t, "/guacamole/api/session/data/default/users/a%2Fb", requests[0].Path)
		assert.Equal(t, "/guacamole/api/session/data/default/users/a%20b", requests[1].Path)
	})

	t.Run("cached per data source and key", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, guac.User{Username: "alice"})
		})

		users := newUsers(t, server, newCountingCache())

		for range 3 {
			_, err := users.Get(context.Background(), "default", "alice")
			require.NoError(t, err)
		}

		_, err := users.Get(context.Background(), "ldap", "alice")
		require.NoError(t, err)

		assert.Equal(t, 2, rec.count())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusNotFound, guac.ErrorBody{Message: "No such user", Type: guac.ErrorTypeNotFound})
		})

		users := newUsers(t, server, nil)

		_, err := users.Get(context.Background(), "default", "ghost")
		require.Error(t, err)
		assert.True(t, guac.IsNotFound(err))
	})

	t.Run("expired token asks for re-authentication", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusForbidden, guac.ErrorBody{
				Message: "Permission denied.",
				Type:    guac.ErrorTypeInsufficientCredentials,
			})
		})

		users := newUsers(t, server, nil)

		_, err := users.Get(context.Background(), "default", "alice")
		require.Error(t, err)
		assert.True(t, guac.IsAuthExpired(err))
	})
}

func TestClient_Validation(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	cache := newCountingCache()
	users := newUsers(t, server, cache)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"list without data source", func() error {
			_, err := users.List(ctx, "")

			return err
		}},
		{"get without key", func() error {
			_, err := users.Get(ctx, "default", "")

			return err
		}},
		{"create without username", func() error {
			_, err := users.Create(ctx, "default", guac.User{})

			return err
		}},
		{"update without username", func() error {
			return users.Update(ctx, "default", guac.User{})
		}},
		{"delete without key", func() error {
			return users.Delete(ctx, "default", " ")
		}},
		{"password change without old password", func() error {
			return users.ChangeCredential(ctx, "default", "alice", "", "new")
		}},
		{"password change without new password", func() error {
			return users.ChangeCredential(ctx, "default", "alice", "old", "")
		}},
		{"empty patch set", func() error {
			_, err := users.Patch(ctx, "default", nil)

			return err
		}},
		{"unknown patch op", func() error {
			_, err := users.Patch(ctx, "default", []guac.Patch[guac.User]{{Op: "move", Path: "/alice"}})

			return err
		}},
		{"patch path without slash", func() error {
			_, err := users.Patch(ctx, "default", []guac.Patch[guac.User]{{Op: guac.PatchOpRemove, Path: "alice"}})

			return err
		}},
		{"add patch without value", func() error {
			_, err := users.Patch(ctx, "default", []guac.Patch[guac.User]{{Op: guac.PatchOpAdd, Path: "/"}})

			return err
		}},
		{"remove patch without identifier", func() error {
			_, err := users.Patch(ctx, "default", []guac.Patch[guac.User]{guac.RemovePatch[guac.User]("")})

			return err
		}},
	}

	for _, tt := range tests {
		err := tt.call()
		require.Error(t, err, tt.name)
		assert.True(t, guac.IsValidation(err), tt.name)
	}

	assert.Equal(t, 0, rec.count())
	assert.Equal(t, int32(0), cache.clears.Load())
}

func TestClient_Create(t *testing.T) {
	t.Parallel()

	t.Run("posts to the collection and clears the cache", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
			if request.Method == http.MethodPost {
				writeJSON(writer, http.StatusOK, guac.User{Username: "carol", Attributes: map[string]string{"disabled": ""}})

				return
			}

			writeJSON(writer, http.StatusOK, userList())
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		_, err := users.List(context.Background(), "default")
		require.NoError(t, err)

		created, err := users.Create(context.Background(), "default", guac.User{Username: "carol", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "carol", created.Username)
		assert.Contains(t, created.Attributes, "disabled")
		assert.Equal(t, int32(1), cache.clears.Load())

		_, err = users.List(context.Background(), "default")
		require.NoError(t, err)

		requests := rec.all()
		require.Len(t, requests, 3)
		assert.Equal(t, http.MethodPost, requests[1].Method)
		assert.Equal(t, "/guacamole/api/session/data/default/users", requests[1].Path)
		assert.JSONEq(t, `{"username":"carol","password":"pw"}`, string(requests[1].Body))
		assert.Equal(t, http.MethodGet, requests[2].Method)
	})

	t.Run("empty response returns the submitted resource", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNoContent)
		})

		users := newUsers(t, server, nil)

		created, err := users.Create(context.Background(), "default", guac.User{Username: "carol"})
		require.NoError(t, err)
		assert.Equal(t, "carol", created.Username)
	})

	t.Run("server assigned keys skip key validation", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, guac.Connection{Identifier: "7", Name: "desk", Protocol: "rdp"})
		})

		dispatcher := internalhttp.NewClient(server.URL, auth.NewStaticTokenManager("T"))
		connections := resource.New(dispatcher, nil, "connections", guac.ConnectionKey, resource.WithServerAssignedKeys())

		created, err := connections.Create(context.Background(), "default", guac.Connection{Name: "desk", Protocol: "rdp"})
		require.NoError(t, err)
		assert.Equal(t, "7", created.Identifier)
	})
}

func TestClient_Delete(t *testing.T) {
	t.Parallel()

	t.Run("success clears cached entries", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
			switch request.Method {
			case http.MethodDelete:
				writer.WriteHeader(http.StatusNoContent)
			default:
				writeJSON(writer, http.StatusOK, userList())
			}
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		_, err := users.List(context.Background(), "default")
		require.NoError(t, err)
		assert.True(t, cache.Has(context.Background(), "default"))

		err = users.Delete(context.Background(), "default", "alice")
		require.NoError(t, err)

		assert.False(t, cache.Has(context.Background(), "default"))

		requests := rec.all()
		require.Len(t, requests, 2)
		assert.Equal(t, http.MethodDelete, requests[1].Method)
		assert.Equal(t, "/guacamole/api/session/data/default/users/alice", requests[1].Path)
		assert.Equal(t, int64(1), users.Stats().Invalidations)
	})

	t.Run("forbidden leaves the cache untouched", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
			switch request.Method {
			case http.MethodDelete:
				writeJSON(writer, http.StatusForbidden, guac.ErrorBody{
					Message: "Permission denied.",
					Type:    guac.ErrorTypePermissionDenied,
				})
			default:
				writeJSON(writer, http.StatusOK, userList())
			}
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		_, err := users.List(context.Background(), "default")
		require.NoError(t, err)

		err = users.Delete(context.Background(), "default", "alice")
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, guac.StatusCode(err))
		assert.True(t, guac.IsForbidden(err))
		assert.False(t, guac.IsAuthExpired(err))

		assert.Equal(t, int32(0), cache.clears.Load())
		assert.True(t, cache.Has(context.Background(), "default"))

		// The next read is still served from the cache.
		_, err = users.List(context.Background(), "default")
		require.NoError(t, err)
		assert.Equal(t, 2, rec.count())
	})

	t.Run("invalidation spans every data source", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
			switch request.Method {
			case http.MethodDelete:
				writer.WriteHeader(http.StatusNoContent)
			default:
				writeJSON(writer, http.StatusOK, userList())
			}
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		_, err := users.List(context.Background(), "ldap")
		require.NoError(t, err)

		err = users.Delete(context.Background(), "default", "alice")
		require.NoError(t, err)

		assert.False(t, cache.Has(context.Background(), "ldap"))
	})
}

func TestClient_Update(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	cache := newCountingCache()
	users := newUsers(t, server, cache)

	err := users.Update(context.Background(), "default", guac.User{
		Username:   "alice",
		Attributes: map[string]string{"guac-full-name": "Alice"},
	})
	require.NoError(t, err)

	requests := rec.all()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Equal(t, "/guacamole/api/session/data/default/users/alice", requests[0].Path)
	assert.JSONEq(t, `{"username":"alice","attributes":{"guac-full-name":"Alice"}}`, string(requests[0].Body))
	assert.Equal(t, int32(1), cache.clears.Load())
}

func TestClient_ChangeCredential(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	cache := newCountingCache()
	users := newUsers(t, server, cache)

	err := users.ChangeCredential(context.Background(), "default", "alice", "old", "new")
	require.NoError(t, err)

	requests := rec.all()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Equal(t, "/guacamole/api/session/data/default/users/alice/password", requests[0].Path)
	assert.JSONEq(t, `{"oldPassword":"old","newPassword":"new"}`, string(requests[0].Body))
	assert.Equal(t, int32(1), cache.clears.Load())
}

func TestClient_Patch(t *testing.T) {
	t.Parallel()

	t.Run("success sends the patch set and clears the cache", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, map[string]interface{}{
				"patches": []guac.PatchOutcome{
					{Op: guac.PatchOpAdd, Path: "/", Identifier: "carol"},
					{Op: guac.PatchOpRemove, Path: "/bob", Identifier: "bob"},
				},
			})
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		result, err := users.Patch(context.Background(), "default", []guac.Patch[guac.User]{
			guac.AddPatch(guac.User{Username: "carol"}),
			guac.RemovePatch[guac.User]("bob"),
		})
		require.NoError(t, err)
		require.Len(t, result.Patches, 2)
		assert.Equal(t, "carol", result.Patches[0].Identifier)

		requests := rec.all()
		require.Len(t, requests, 1)
		assert.Equal(t, http.MethodPatch, requests[0].Method)
		assert.Equal(t, "/guacamole/api/session/data/default/users", requests[0].Path)
		assert.JSONEq(t, `[{"op":"add","path":"/","value":{"username":"carol"}},{"op":"remove","path":"/bob"}]`,
			string(requests[0].Body))
		assert.Equal(t, int32(1), cache.clears.Load())
	})

	t.Run("rejected batch leaves the cache untouched", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusBadRequest, guac.ErrorBody{
				Message: "The provided patches could not be applied.",
				Type:    guac.ErrorTypeBadRequest,
			})
		})

		cache := newCountingCache()
		users := newUsers(t, server, cache)

		_, err := users.Patch(context.Background(), "default", []guac.Patch[guac.User]{
			guac.RemovePatch[guac.User]("bob"),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, guac.StatusCode(err))
		assert.Equal(t, int32(0), cache.clears.Load())
	})

	t.Run("empty response yields no outcomes", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNoContent)
		})

		users := newUsers(t, server, nil)

		result, err := users.Patch(context.Background(), "default", []guac.Patch[guac.User]{
			guac.ReplacePatch("alice", guac.User{Username: "alice"}),
		})
		require.NoError(t, err)
		assert.Empty(t, result.Patches)
	})
}

func TestClient_RejectedWritesKeepCachedList(t *testing.T) {
	t.Parallel()

	writes := []struct {
		name   string
		method string
		path   string
		write  func(users *resource.Client[guac.User]) error
	}{
		{
			name:   "create",
			method: http.MethodPost,
			path:   "/guacamole/api/session/data/default/users",
			write: func(users *resource.Client[guac.User]) error {
				_, err := users.Create(context.Background(), "default", guac.User{Username: "carol"})

				return err
			},
		},
		{
			name:   "update",
			method: http.MethodPut,
			path:   "/guacamole/api/session/data/default/users/alice",
			write: func(users *resource.Client[guac.User]) error {
				return users.Update(context.Background(), "default", guac.User{Username: "alice"})
			},
		},
		{
			name:   "credential mismatch",
			method: http.MethodPut,
			path:   "/guacamole/api/session/data/default/users/alice/password",
			write: func(users *resource.Client[guac.User]) error {
				return users.ChangeCredential(context.Background(), "default", "alice", "wrong", "new")
			},
		},
	}

	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
				if request.Method == http.MethodGet {
					writeJSON(writer, http.StatusOK, userList())

					return
				}

				writeJSON(writer, http.StatusForbidden, guac.ErrorBody{
					Message: "Permission denied.",
					Type:    guac.ErrorTypePermissionDenied,
				})
			})

			cache := newCountingCache()
			users := newUsers(t, server, cache)

			_, err := users.List(context.Background(), "default")
			require.NoError(t, err)

			err = tt.write(users)
			require.Error(t, err)
			assert.True(t, guac.IsForbidden(err))
			assert.False(t, guac.IsAuthExpired(err))

			listed, err := users.List(context.Background(), "default")
			require.NoError(t, err)
			assert.Equal(t, userList(), listed)

			requests := rec.all()
			require.Len(t, requests, 2)
			assert.Equal(t, tt.method, requests[1].Method)
			assert.Equal(t, tt.path, requests[1].Path)
			assert.Equal(t, int32(0), cache.clears.Load())
			assert.Equal(t, int64(1), users.Stats().Hits)
		})
	}
}

func TestClient_PatchBatchRejectedAsAWhole(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodGet {
			writeJSON(writer, http.StatusOK, userList())

			return
		}

		writeJSON(writer, http.StatusBadRequest, guac.ErrorBody{
			Message: "The provided patches could not be applied.",
			Type:    guac.ErrorTypeBadRequest,
		})
	})

	cache := newCountingCache()
	users := newUsers(t, server, cache)

	_, err := users.List(context.Background(), "default")
	require.NoError(t, err)

	_, err = users.Patch(context.Background(), "default", []guac.Patch[guac.User]{
		guac.AddPatch(guac.User{Username: "carol"}),
		guac.RemovePatch[guac.User]("nobody"),
		guac.ReplacePatch("alice", guac.User{Username: "alice"}),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, guac.StatusCode(err))

	listed, err := users.List(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, userList(), listed)

	requests := rec.all()
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodPatch, requests[1].Method)

	var sent []guac.Patch[guac.User]
	require.NoError(t, json.Unmarshal(requests[1].Body, &sent))
	require.Len(t, sent, 3)
	assert.Equal(t, "/nobody", sent[1].Path)
	assert.Equal(t, int32(0), cache.clears.Load())
}

func TestClient_TransportFailureLeavesCache(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, userList())
	})

	cache := newCountingCache()
	users := newUsers(t, server, cache)

	_, err := users.List(context.Background(), "default")
	require.NoError(t, err)

	server.Close()

	err = users.Delete(context.Background(), "default", "alice")
	require.Error(t, err)
	assert.True(t, guac.IsTransport(err))
	assert.Equal(t, int32(0), cache.clears.Load())

	// Reads keep being served from the cache while the server is away.
	list, err := users.List(context.Background(), "default")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestClient_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	server := newServer(t, rec, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodDelete {
			writer.WriteHeader(http.StatusNoContent)

			return
		}

		writeJSON(writer, http.StatusOK, userList())
	})

	users := newUsers(t, server, newCountingCache())

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if i%4 == 0 {
				assert.NoError(t, users.Delete(context.Background(), "default", "bob"))

				return
			}

			_, err := users.List(context.Background(), "default")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	stats := users.Stats()
	assert.Equal(t, int64(4), stats.Invalidations)
	assert.Equal(t, int64(12), stats.Hits+stats.Misses)
}
