package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/incidentbot/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("incidentbot setup wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Telegram bot token
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token", cfg.Telegram.Token)

		// 2. Administrator Telegram user ID
		adminStr := promptValid(scanner, "Administrator Telegram user ID (0 disables admin commands)",
			"telegram.admin_id", strconv.FormatInt(cfg.Telegram.AdminID, 10))
		cfg.Telegram.AdminID, _ = strconv.ParseInt(adminStr, 10, 64)

		// 3. Database
		cfg.Database.Driver = promptValid(scanner, "Database driver (sqlite or mysql)", "database.driver", cfg.Database.Driver)
		cfg.Database.DSN = prompt(scanner, "Database DSN (empty for the default sqlite file)", cfg.Database.DSN)

		// 4. History digest (optional)
		cfg.Digest.Schedule = promptValid(scanner, "History digest cron schedule (optional)", "digest.schedule", cfg.Digest.Schedule)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// promptValid prompts until the answer passes validateSetting for key.
// The default is returned unchanged when input ends.
func promptValid(scanner *bufio.Scanner, label, key, defaultVal string) string {
	for {
		v := prompt(scanner, label, defaultVal)
		normalized, err := validateSetting(key, v)
		if err == nil {
			return normalized
		}
		if v == defaultVal {
			return defaultVal
		}
		fmt.Println(err)
	}
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
