package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/guacrest/internal/auth"
	"github.com/fivetwenty-io/guacrest/internal/client"
	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
	"github.com/fivetwenty-io/guacrest/pkg/guacclient"
)

// Config represents the CLI configuration.
type Config struct {
	Server     string `json:"server,omitempty"      yaml:"server,omitempty"`
	Token      string `json:"token,omitempty"       yaml:"token,omitempty"`
	Username   string `json:"username,omitempty"    yaml:"username,omitempty"`
	Password   string `json:"password,omitempty"    yaml:"password,omitempty"`
	DataSource string `json:"data_source,omitempty" yaml:"data_source,omitempty"`
	Output     string `json:"output,omitempty"      yaml:"output,omitempty"`
	Retries    int    `json:"retries,omitempty"     yaml:"retries,omitempty"`

	Cache *guac.CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// configKeys are the keys accepted by 'config set'. The value reports whether
// the key holds a secret.
var configKeys = map[string]bool{
	"server":         false,
	"token":          true,
	"username":       false,
	"password":       true,
	"data_source":    false,
	"output":         false,
	"retries":        false,
	"cache.type":     false,
	"cache.nats.url": false,

	"cache.nats.bucket_prefix": false,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the guacctl configuration stored in $HOME/.guacctl/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskSecrets(loadConfig())

			return renderOutput(cmd.OutOrStdout(), config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append([]string{"Server", formatValue(config.Server)})
				_ = table.Append([]string{"Token", formatValue(config.Token)})
				_ = table.Append([]string{"Username", formatValue(config.Username)})
				_ = table.Append([]string{"Password", formatValue(config.Password)})
				_ = table.Append([]string{"Data Source", formatValue(config.DataSource)})
				_ = table.Append([]string{"Output", formatValue(config.Output)})
				_ = table.Append([]string{"Retries", strconv.Itoa(config.Retries)})

				if config.Cache != nil {
					_ = table.Append([]string{"Cache", formatValue(string(config.Cache.Type))})
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value and write it to the config file",
		Args:  cobra.ExactArgs(constants.ConfigSetArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if _, known := configKeys[key]; !known {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			viper.Set(key, value)

			err := saveConfig()
			if err != nil {
				return err
			}

			if configKeys[key] {
				value = constants.MaskedSecret
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return nil
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		Server:     viper.GetString("server"),
		Token:      viper.GetString("token"),
		Username:   viper.GetString("username"),
		Password:   viper.GetString("password"),
		DataSource: viper.GetString("data_source"),
		Output:     viper.GetString("output"),
		Retries:    viper.GetInt("retries"),
	}

	cacheType := viper.GetString("cache.type")
	if cacheType != "" {
		config.Cache = &guac.CacheConfig{Type: guac.CacheType(cacheType)}

		natsURL := viper.GetString("cache.nats.url")
		if natsURL != "" {
			config.Cache.NATS = &guac.NATSKVConfig{
				URL:          natsURL,
				BucketPrefix: viper.GetString("cache.nats.bucket_prefix"),
			}
		}
	}

	return config
}

func maskSecrets(config *Config) *Config {
	masked := *config

	if masked.Token != "" {
		masked.Token = constants.MaskedSecret
	}

	if masked.Password != "" {
		masked.Password = constants.MaskedSecret
	}

	return &masked
}

// configFilePath returns the file viper read from, or the default location.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".guacctl", "config.yml"), nil
}

func saveConfig() error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(loadConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// session bundles an API client with the data source commands operate on.
type session struct {
	client     *client.Client
	dataSource string
	closeFn    func()
}

func (s *session) Close() {
	s.closeFn()
}

// newSession creates an API client from the current configuration. Without
// an explicit data source it uses the one reported at login, then "default".
func newSession(ctx context.Context) (*session, error) {
	config := loadConfig()
	if config.Server == "" {
		return nil, constants.ErrNoServerConfigured
	}

	logger, syncLogger, err := NewLogger(viper.GetBool("verbose"))
	if err != nil {
		return nil, err
	}

	guacConfig := &guac.Config{
		BaseURL:    guacclient.NormalizeBaseURL(config.Server),
		Token:      config.Token,
		Username:   config.Username,
		Password:   config.Password,
		DataSource: config.DataSource,
		RetryMax:   config.Retries,
		Logger:     logger,
		Debug:      viper.GetBool("verbose"),
		UserAgent:  "guacctl",
		Cache:      config.Cache,
	}

	apiClient, err := client.New(ctx, guacConfig)
	if err != nil {
		syncLogger()

		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	result := &session{
		client:     apiClient,
		dataSource: config.DataSource,
		closeFn: func() {
			_ = apiClient.Close()

			syncLogger()
		},
	}

	if result.dataSource == "" {
		result.dataSource, err = defaultDataSource(ctx, apiClient)
		if err != nil {
			result.Close()

			return nil, err
		}
	}

	return result, nil
}

func defaultDataSource(ctx context.Context, apiClient *client.Client) (string, error) {
	if _, ok := apiClient.TokenManager().(*auth.SessionTokenManager); !ok {
		return guac.DataSourceDefault, nil
	}

	// Logging in reveals the primary data source of the account.
	_, err := apiClient.TokenManager().GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}

	token := apiClient.Session()
	if token == nil || token.DataSource == "" {
		return guac.DataSourceDefault, nil
	}

	return token.DataSource, nil
}
