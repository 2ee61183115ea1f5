package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and database status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		daemon := "stopped"
		if pid, err := readPIDFrom(cfg.DataDir); err == nil {
			daemon = fmt.Sprintf("running (PID %d)", pid)
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		subs, err := st.CountSubscribers(cmd.Context())
		if err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		incidents, err := st.CountIncidents(cmd.Context())
		if err != nil {
			return fmt.Errorf("count incidents: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "daemon\t%s\n", daemon)
		fmt.Fprintf(w, "database\t%s\n", cfg.Database.Driver)
		fmt.Fprintf(w, "admin\t%d\n", cfg.Telegram.AdminID)
		fmt.Fprintf(w, "subscribers\t%d\n", subs)
		fmt.Fprintf(w, "incidents\t%d\n", incidents)
		return w.Flush()
	},
}
