package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/incidentbot/internal/config"
	"github.com/user/incidentbot/internal/scheduler"
	"github.com/user/incidentbot/internal/store"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the bot configuration file",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting, secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := config.ListValues(loadConfig(), true)
		if err != nil {
			return fmt.Errorf("list config: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, k := range config.SortedKeys(values) {
			fmt.Fprintf(w, "%s\t%v\n", k, values[k])
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting as stored in the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsKnownKey(args[0]) {
			return unknownKeyError(args[0])
		}
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Validate and store one setting",
	Long: `Validate and store one setting. Keys use dots for sections, e.g.

  incidentbot config set telegram.admin_id 123456789
  incidentbot config set digest.schedule "0 9 * * *"
  incidentbot config set database.driver mysql

A running bot picks up changes after "incidentbot restart".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConfigValue(os.Stdout, cfgPath, args[0], args[1])
	},
}

// setConfigValue validates value for key and writes it to the file at path.
func setConfigValue(w io.Writer, path, key, value string) error {
	normalized, err := validateSetting(key, value)
	if err != nil {
		return err
	}
	if err := config.SetValue(path, key, normalized); err != nil {
		return err
	}
	display := normalized
	if config.IsSecretKey(key) && display != "" {
		display = config.Mask(display)
	}
	fmt.Fprintf(w, "%s = %s\n", key, display)
	return nil
}

// validateSetting checks value against the type and domain of key and
// returns it in the form it should be stored.
func validateSetting(key, value string) (string, error) {
	if !config.IsKnownKey(key) {
		return "", unknownKeyError(key)
	}
	value = strings.TrimSpace(value)

	switch key {
	case "telegram.admin_id":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%s must be a Telegram user id (0 disables admin commands), got %q", key, value)
		}
		return strconv.FormatInt(n, 10), nil
	case "max_concurrent", "history.limit", "history.chunk_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		return strconv.Itoa(n), nil
	case "http.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		return strconv.FormatBool(b), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			return strings.ToLower(value), nil
		}
		return "", fmt.Errorf("%s must be one of debug, info, warn, error; got %q", key, value)
	case "database.driver":
		switch value {
		case store.DriverSQLite, store.DriverMySQL:
			return value, nil
		}
		return "", fmt.Errorf("%s must be %q or %q, got %q", key, store.DriverSQLite, store.DriverMySQL, value)
	case "digest.schedule":
		if value == "" {
			return "", nil
		}
		if err := scheduler.Validate(value); err != nil {
			return "", fmt.Errorf("%s: %w", key, err)
		}
	}
	return value, nil
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(config.Keys(), ", "))
}
