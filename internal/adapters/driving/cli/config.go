package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and edit persisted settings",
	Long: `Reads and writes config.toml. Environment variables (SERCHA_SYNC_*) and
the env file still override what is stored here.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(settings.Path())
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its effective value and source",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting in config.toml",
	Long: `Stores a setting. Durations use Go syntax (30s, 2m) and lists are
comma separated. The resulting configuration must be valid.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a setting from config.toml",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configPathCmd, configListCmd, configGetCmd, configSetCmd, configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

// settingSource names where the effective value of key comes from.
func settingSource(key string) string {
	if _, ok := os.LookupEnv(config.EnvName(key)); ok {
		return "env"
	}
	if _, ok := settings.Get(key); ok {
		return "file"
	}
	return "default"
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if config.IsSecret(key) && value != "" {
			value = "********"
		}
		cmd.Printf("%-22s %-40s (%s)\n", key, value, settingSource(key))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	value, err := config.StoredValue(key, raw)
	if err != nil {
		return err
	}
	next := cfg
	if err := next.Set(key, raw); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := settings.Set(key, value); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	cfg = next
	cmd.Printf("Set %s in %s\n", key, settings.Path())
	if src := settingSource(key); src == "env" {
		cmd.Printf("Note: %s overrides this value\n", config.EnvName(key))
	}
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := args[0]
	if _, err := cfg.Get(key); err != nil {
		return err
	}
	if err := settings.Unset(key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	cmd.Printf("Unset %s\n", key)
	return nil
}
