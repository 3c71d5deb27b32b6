package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/remote"
	"github.com/roach88/huddle/internal/store"
	"github.com/roach88/huddle/internal/syncproto"
	"github.com/roach88/huddle/internal/testutil"
)

var testMeta = model.GameMeta{GameID: "game-1", Opponent: "Hawks", FieldSize: "80x40"}

var testRoster = []model.PlayerRef{
	{ID: "5", Jersey: 5, Name: "Ava", Eligible: true},
	{ID: "11", Jersey: 11, Name: "Ben", Eligible: true},
	{ID: "70", Jersey: 70, Name: "Cal", Eligible: false},
}

// failingStorage wraps a Store and fails Commit while armed.
type failingStorage struct {
	*store.Store
	armed atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStorage) Commit(ctx context.Context, b store.Batch) error {
	if f.armed.Load() {
		return errDiskFull
	}
	return f.Store.Commit(ctx, b)
}

type fixture struct {
	app     *App
	storage *failingStorage
	queue   *queue.Queue
	acc     *remote.SQLiteAcceptor
	remote  *testutil.FlakyRemote
	dbPath  string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	acc, err := remote.OpenSQLite(filepath.Join(dir, "remote.db"), remote.WithAcceptorLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { acc.Close() })

	f := &fixture{
		acc:    acc,
		remote: testutil.NewFlakyRemote(acc),
		dbPath: filepath.Join(dir, "device.db"),
	}
	f.reopen(t)
	return f
}

// reopen simulates a process restart against the same device database.
func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	st, err := store.Open(f.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f.storage = &failingStorage{Store: st}
	f.queue = queue.New(syncproto.NewDispatcher(f.remote, discardLogger()), f.storage,
		queue.WithLogger(discardLogger()),
	)
	f.app = New(f.storage, f.queue,
		WithKeys(testutil.NewSequentialKeys("k")),
		WithClock(testutil.NewDeterministicClock().Now),
		WithLogger(discardLogger()),
	)
	require.NoError(t, f.app.Open(context.Background()))
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	_, err := f.app.StartGame(context.Background(), testMeta, testRoster)
	require.NoError(t, err)
}

func (f *fixture) livePlays(t *testing.T) []remote.PlayRecord {
	t.Helper()
	plays, err := f.acc.Plays(context.Background(), testMeta.GameID)
	require.NoError(t, err)
	return plays
}
