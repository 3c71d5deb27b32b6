package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/session"
)

func TestLoadSession_Empty(t *testing.T) {
	s := createTestStore(t)

	_, found, err := s.LoadSession(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot(t)

	require.NoError(t, s.Commit(ctx, Batch{Session: &snap}))

	got, found, err := s.LoadSession(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap, got)

	restored, err := session.Restore(got)
	require.NoError(t, err)
	assert.Equal(t, map[model.PlayerID]int{"5": 1, "11": 0, "70": 0}, restored.Participation())
	assert.Equal(t, 2, restored.PlayNumber())
}

func TestSession_ReplaceIsWhole(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestSnapshot(t)
	require.NoError(t, s.Commit(ctx, Batch{Session: &first}))

	restored, err := session.Restore(first)
	require.NoError(t, err)
	restored.Undo()
	second := restored.Snapshot()
	require.NoError(t, s.Commit(ctx, Batch{Session: &second}))

	got, _, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM session_records").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestCommit_ClearSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot(t)
	require.NoError(t, s.Commit(ctx, Batch{Session: &snap}))

	require.NoError(t, s.Commit(ctx, Batch{ClearSession: true}))
	require.NoError(t, s.Commit(ctx, Batch{ClearSession: true}))

	_, found, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQueue_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pending := []model.OfflineAction{createTestAction("a-1", 0), createTestAction("a-2", 2)}
	failed := []model.FailedAction{{
		OfflineAction: createTestAction("a-0", 3),
		Error:         "remote unavailable",
		LastAttemptAt: testTime,
	}}

	require.NoError(t, s.SaveQueue(ctx, pending, failed))

	gotPending, gotFailed, err := s.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, pending, gotPending)
	assert.Equal(t, failed, gotFailed)
}

func TestQueue_EmptyLoadsAsEmptySlices(t *testing.T) {
	s := createTestStore(t)

	pending, failed, err := s.LoadQueue(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.NotNil(t, failed)
	assert.Empty(t, pending)
	assert.Empty(t, failed)
}

func TestQueue_ReplacePreservesOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveQueue(ctx, []model.OfflineAction{
		createTestAction("a-1", 0), createTestAction("a-2", 0), createTestAction("a-3", 0),
	}, nil))
	require.NoError(t, s.SaveQueue(ctx, []model.OfflineAction{
		createTestAction("a-3", 0), createTestAction("a-1", 1),
	}, nil))

	pending, _, err := s.LoadQueue(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a-3", pending[0].ID)
	assert.Equal(t, "a-1", pending[1].ID)
	assert.Equal(t, 1, pending[1].Retries)
}

func TestCommit_SessionAndQueueTogether(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot(t)

	err := s.Commit(ctx, Batch{
		Session: &snap,
		Queue:   &QueueState{Pending: []model.OfflineAction{createTestAction("a-1", 0)}},
	})
	require.NoError(t, err)

	got, found, err := s.LoadSession(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap, got)

	pending, _, err := s.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCommit_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	original := createTestSnapshot(t)
	require.NoError(t, s.Commit(ctx, Batch{Session: &original}))

	restored, err := session.Restore(original)
	require.NoError(t, err)
	restored.Undo()
	changed := restored.Snapshot()

	// Duplicate ids violate the UNIQUE constraint, so the whole batch must roll back.
	err = s.Commit(ctx, Batch{
		Session: &changed,
		Queue: &QueueState{Pending: []model.OfflineAction{
			createTestAction("dup", 0), createTestAction("dup", 0),
		}},
	})
	require.Error(t, err)

	got, _, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, got, "session write must not survive a failed batch")

	pending, _, err := s.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCommit_InvalidActionType(t *testing.T) {
	s := createTestStore(t)
	bad := createTestAction("a-1", 0)
	bad.Type = "UPSERT"

	err := s.SaveQueue(context.Background(), []model.OfflineAction{bad}, nil)
	assert.Error(t, err)
}
