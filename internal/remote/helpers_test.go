package remote

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/idempotency"
	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/syncproto"
)

var acceptedAt = time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestAcceptor(t *testing.T) *SQLiteAcceptor {
	t.Helper()
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("play-%d", i+1)
	}
	acc, err := OpenSQLite(filepath.Join(t.TempDir(), "remote.db"),
		WithPlayIDs(idempotency.NewFixedGenerator(ids...)),
		WithAcceptorClock(func() time.Time { return acceptedAt }),
		WithAcceptorLogger(discardLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { acc.Close() })
	return acc
}

func submission(n int, key string) syncproto.PlaySubmission {
	return syncproto.NewPlaySubmission("g-1", "s-1", model.PlayEntry{
		PlayNumber: n,
		Mode:       model.ModeOffense,
		Players:    []model.PlayerID{"p1", "p2"},
		Result:     model.ResultCompletion,
		Quarter:    1,
		RecordedAt: time.Date(2026, 9, 12, 10, n, 0, 0, time.UTC),
		Key:        key,
	})
}
