//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	Server        string
	AdminUser     string
	AdminPassword string
	GuacctlPath   string
	Verbose       bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Server:        os.Getenv("GUACAMOLE_URL"),
		AdminUser:     os.Getenv("GUACAMOLE_ADMIN_USER"),
		AdminPassword: os.Getenv("GUACAMOLE_ADMIN_PASSWORD"),
		GuacctlPath:   getGuacctlPath(),
		Verbose:       os.Getenv("GUACCTL_VERBOSE") == "true",
	}
}

// getGuacctlPath determines the path to the guacctl binary
func getGuacctlPath() string {
	if path := os.Getenv("GUACCTL_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../guacctl",
		"./guacctl",
		"../guacctl",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "guacctl" // Fallback to PATH
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.Server == "" || config.AdminUser == "" || config.AdminPassword == "" {
		t.Skip("GUACAMOLE_URL, GUACAMOLE_ADMIN_USER or GUACAMOLE_ADMIN_PASSWORD not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.GuacctlPath); err != nil {
		t.Skipf("guacctl binary not found at %s, skipping integration test", config.GuacctlPath)
	}
}

// CommandRunner runs guacctl against an isolated config file
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a guacctl command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a guacctl command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	// #nosec G204 -- the binary path comes from the test environment
	cmd := exec.Command(runner.config.GuacctlPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.GuacctlPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// Login stores the server and an admin session in the runner's config file
func (runner *CommandRunner) Login() error {
	_, stderr, err := runner.Run("config", "set", "server", runner.config.Server)
	if err != nil {
		return fmt.Errorf("failed to set server: %s", stderr)
	}

	_, stderr, err = runner.RunWithInput(runner.config.AdminPassword+"\n",
		"login", "--username", runner.config.AdminUser, "--password-stdin")
	if err != nil {
		return fmt.Errorf("failed to log in: %s", stderr)
	}

	return nil
}

// GenerateTestName creates a unique test resource name
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CleanupUser attempts to delete a test user
func (runner *CommandRunner) CleanupUser(username string) {
	stdout, stderr, err := runner.Run("users", "delete", username)
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for user %s: %s\nStderr: %s", username, stdout, stderr)
	}
}

// AssertJSONOutput fails the test if output is not valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	var decoded interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output)
	}
}
