package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/incidentbot/internal/message"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "number of incidents to show (default history.limit)")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the most recent incidents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		limit := cfg.History.Limit
		if historyLimit > 0 {
			limit = historyLimit
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		incidents, err := st.ListRecentIncidents(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list incidents: %w", err)
		}
		if len(incidents) == 0 {
			fmt.Println("No incidents recorded.")
			return nil
		}
		for _, inc := range incidents {
			fmt.Fprint(os.Stdout, message.HistoryBlock(inc))
		}
		return nil
	},
}
