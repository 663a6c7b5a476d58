package commands_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// runCommand executes cmd with args and returns what it wrote to stdout.
func runCommand(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

// useConfig points viper at a fresh config file and the given settings.
func useConfig(t *testing.T, settings map[string]string) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.SetConfigFile(configFile)

	for key, value := range settings {
		viper.Set(key, value)
	}

	return configFile
}

// fakeGuacamole serves the users endpoints of the postgresql data source.
type fakeGuacamole struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	tokens   []string
}

func newFakeGuacamole(t *testing.T) (*fakeGuacamole, *httptest.Server) {
	t.Helper()

	fake := &fakeGuacamole{bodies: make(map[string]string)}

	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)

	return fake, server
}

func (f *fakeGuacamole) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := r.Method + " " + r.URL.EscapedPath()

	if r.URL.RawQuery != "" {
		call += "?" + r.URL.RawQuery
	}

	f.mu.Lock()
	f.requests = append(f.requests, call)
	f.bodies[call] = string(body)
	f.tokens = append(f.tokens, r.Header.Get("Guacamole-Token"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch call {
	case "POST /api/tokens":
		if !strings.Contains(string(body), "password=secret") {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Invalid login.","type":"INVALID_CREDENTIALS"}`))

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"authToken":            "SESSION",
			"username":             "admin",
			"dataSource":           "postgresql",
			"availableDataSources": []string{"postgresql", "default"},
		})
	case "DELETE /api/session":
		w.WriteHeader(http.StatusNoContent)
	case "GET /api/session/data/postgresql/users",
		"GET /api/session/data/postgresql/users?permission=ADMINISTER":
		_, _ = w.Write([]byte(`{
			"bob": {"username": "bob", "attributes": {"guac-full-name": "Bob"}},
			"alice": {"username": "alice", "lastActive": 1700000000000}
		}`))
	case "GET /api/session/data/postgresql/users/alice":
		_, _ = w.Write([]byte(`{"username": "alice", "attributes": {"guac-email-address": "alice@example.com"}}`))
	case "GET /api/session/data/postgresql/users/ghost":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No such user","type":"NOT_FOUND"}`))
	case "POST /api/session/data/postgresql/users":
		_, _ = w.Write(body)
	case "DELETE /api/session/data/postgresql/users/alice",
		"PUT /api/session/data/postgresql/users/alice/password":
		w.WriteHeader(http.StatusNoContent)
	case "GET /api/session/data/postgresql/connections":
		_, _ = w.Write([]byte(`{"7": {"identifier": "7", "name": "web01", "protocol": "ssh", "parentIdentifier": "ROOT"}}`))
	case "GET /api/session/data/postgresql/userGroups":
		_, _ = w.Write([]byte(`{"ops": {"identifier": "ops"}, "dev": {"identifier": "dev"}}`))
	case "DELETE /api/session/data/postgresql/connections/7",
		"DELETE /api/session/data/postgresql/userGroups/ops":
		w.WriteHeader(http.StatusNoContent)
	case "PATCH /api/session/data/postgresql/users":
		_, _ = w.Write([]byte(`[{"op":"add","path":"/","identifier":"carol"},{"op":"remove","path":"/bob"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"unexpected request","type":"NOT_FOUND"}`))
	}
}

func (f *fakeGuacamole) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.requests...)
}

func (f *fakeGuacamole) body(call string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.bodies[call]
}

func (f *fakeGuacamole) sentTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.tokens...)
}
