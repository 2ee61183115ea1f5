//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: INCIDENTBOT_TEST_MYSQL_DSN='user:pass@tcp(127.0.0.1:3306)/incidents?parseTime=true' go test -tags integration ./internal/store
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("INCIDENTBOT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("INCIDENTBOT_TEST_MYSQL_DSN not set")
	}

	s, err := Open(Options{Driver: DriverMySQL, DSN: dsn})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	id := time.Now().UnixNano()

	before, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddSubscriber(ctx, id))
	require.NoError(t, s.AddSubscriber(ctx, id))
	after, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	inc := sampleIncident(1)
	inc.Chairman = "Петров П.П."
	require.NoError(t, s.AddIncident(ctx, inc))
	require.NotZero(t, inc.ID)

	recent, err := s.ListRecentIncidents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, inc.ID, recent[0].ID)
	assert.Equal(t, "Петров П.П.", recent[0].Chairman)
}
