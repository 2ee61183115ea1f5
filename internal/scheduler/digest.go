package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/incidentbot/internal/message"
	"github.com/user/incidentbot/internal/types"
)

// DigestJobName names the recent-history digest job.
const DigestJobName = "history-digest"

// Digest returns a job that sends the most recent incidents to chatID,
// formatted exactly like the /history reply. Nothing is sent when there
// are no incidents.
func Digest(schedule string, incidents types.IncidentStore, sender types.Sender, chatID int64, limit, chunkSize int) Job {
	return Job{
		Name:     DigestJobName,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			recent, err := incidents.ListRecentIncidents(ctx, limit)
			if err != nil {
				return fmt.Errorf("digest: %w", err)
			}
			if len(recent) == 0 {
				slog.Debug("digest skipped, no incidents")
				return nil
			}
			for _, chunk := range message.History(recent, chunkSize) {
				if err := sender.SendText(ctx, chatID, chunk); err != nil {
					return fmt.Errorf("digest: %w", err)
				}
			}
			return nil
		},
	}
}
