package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subscriberCmd)
	subscriberCmd.AddCommand(subscriberAddCmd, subscriberListCmd)
}

var subscriberCmd = &cobra.Command{
	Use:   "subscriber",
	Short: "Manage notification subscribers",
}

var subscriberAddCmd = &cobra.Command{
	Use:   "add <user_id>",
	Short: "Subscribe a Telegram user to notifications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("user id must be a number: %q", args[0])
		}

		cfg := loadConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.AddSubscriber(cmd.Context(), id); err != nil {
			return fmt.Errorf("add subscriber: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Subscribed %d.\n", id)
		return nil
	},
}

var subscriberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ids, err := st.ListSubscribers(cmd.Context())
		if err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No subscribers.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(os.Stdout, id)
		}
		return nil
	},
}
