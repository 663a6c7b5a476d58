package commands_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/guacrest/cmd/guacctl/commands"
	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

func TestConfigCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewConfigCommand()
	assert.Equal(t, "config", cmd.Use)
	assert.Equal(t, "Manage CLI configuration", cmd.Short)
	assert.NotNil(t, findSubcommand(cmd, "show"))
	assert.NotNil(t, findSubcommand(cmd, "set"))
}

func TestConfigShowMasksSecrets(t *testing.T) {
	useConfig(t, map[string]string{
		"server":   "https://guac.example.com/guacamole",
		"token":    "TOKEN",
		"password": "hunter2",
		"output":   "json",
	})

	out, err := runCommand(commands.NewConfigCommand(), "", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "TOKEN")
	assert.NotContains(t, out, "hunter2")

	var shown commands.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "https://guac.example.com/guacamole", shown.Server)
	assert.Equal(t, constants.MaskedSecret, shown.Token)
	assert.Equal(t, constants.MaskedSecret, shown.Password)
}

func TestConfigSet(t *testing.T) {
	configFile := useConfig(t, nil)

	_, err := runCommand(commands.NewConfigCommand(), "", "set", "server", "guac.example.com")
	require.NoError(t, err)

	out, err := runCommand(commands.NewConfigCommand(), "", "set", "token", "TOKEN")
	require.NoError(t, err)
	assert.Contains(t, out, constants.MaskedSecret)
	assert.NotContains(t, out, "TOKEN")

	_, err = runCommand(commands.NewConfigCommand(), "", "set", "cache.type", "none")
	require.NoError(t, err)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)

	var saved commands.Config
	require.NoError(t, yaml.Unmarshal(data, &saved))
	assert.Equal(t, "guac.example.com", saved.Server)
	assert.Equal(t, "TOKEN", saved.Token)
	require.NotNil(t, saved.Cache)
	assert.Equal(t, guac.CacheTypeNone, saved.Cache.Type)
}

func TestConfigSetUnknownKey(t *testing.T) {
	useConfig(t, nil)

	_, err := runCommand(commands.NewConfigCommand(), "", "set", "colour", "blue")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	useConfig(t, map[string]string{"output": "xml"})

	_, err := runCommand(commands.NewConfigCommand(), "", "show")
	require.ErrorIs(t, err, constants.ErrUnsupportedFormat)
}
