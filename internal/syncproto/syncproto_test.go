package syncproto

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
)

var recordedAt = time.Date(2026, 9, 12, 10, 15, 0, 0, time.UTC)

func samplePlay() PlaySubmission {
	return NewPlaySubmission("g-1", "s-1", model.PlayEntry{
		PlayNumber: 3,
		Mode:       model.ModeOffense,
		Players:    []model.PlayerID{"p1", "p2"},
		Result:     model.ResultRun,
		Quarter:    2,
		RecordedAt: recordedAt,
		Key:        "key-3",
		Extra:      map[string]string{"yards": "4"},
	})
}

type fakeRemote struct {
	plays   []PlaySubmission
	deletes []PlayDeletion
	updates []GameUpdate
	resp    PlayResponse
	err     error
}

func (f *fakeRemote) SubmitPlay(_ context.Context, p PlaySubmission) (PlayResponse, error) {
	f.plays = append(f.plays, p)
	return f.resp, f.err
}

func (f *fakeRemote) DeletePlay(_ context.Context, d PlayDeletion) error {
	f.deletes = append(f.deletes, d)
	return f.err
}

func (f *fakeRemote) UpdateGame(_ context.Context, u GameUpdate) error {
	f.updates = append(f.updates, u)
	return f.err
}

func action(t *testing.T, typ model.ActionType, entity model.Entity, payload any) model.OfflineAction {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return model.OfflineAction{ID: "a-1", Type: typ, Entity: entity, Payload: body}
}

func newDispatcher(r Remote) *Dispatcher {
	return NewDispatcher(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewPlaySubmission(t *testing.T) {
	p := samplePlay()

	assert.Equal(t, "key-3", p.IdempotencyKey)
	assert.Equal(t, 3, p.PlayNumber)
	assert.Equal(t, 2, p.Quarter)
	assert.Equal(t, model.ModeOffense, p.PlayType)
	assert.Equal(t, []model.PlayerID{"p1", "p2"}, p.Players)
	assert.Equal(t, map[string]string{"yards": "4"}, p.Extra)
	require.NoError(t, p.Validate())
}

func TestPlaySubmission_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaySubmission)
	}{
		{"missing key", func(p *PlaySubmission) { p.IdempotencyKey = "" }},
		{"missing game", func(p *PlaySubmission) { p.GameID = "" }},
		{"zero play number", func(p *PlaySubmission) { p.PlayNumber = 0 }},
		{"zero quarter", func(p *PlaySubmission) { p.Quarter = 0 }},
		{"bad mode", func(p *PlaySubmission) { p.PlayType = "kneel" }},
		{"bad result", func(p *PlaySubmission) { p.Result = "hail_mary_miracle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlay()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
		})
	}
}

func TestPlaySubmission_Fingerprint(t *testing.T) {
	a, err := samplePlay().Fingerprint()
	require.NoError(t, err)

	b, err := samplePlay().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b, "retries of the same play share a fingerprint")

	other := samplePlay()
	other.Result = model.ResultFumble
	c, err := other.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	noExtra := samplePlay()
	noExtra.Extra = nil
	emptyExtra := samplePlay()
	emptyExtra.Extra = map[string]string{}
	d1, err := noExtra.Fingerprint()
	require.NoError(t, err)
	d2, err := emptyExtra.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestGameUpdate_Validate(t *testing.T) {
	q := 0
	assert.ErrorIs(t, GameUpdate{}.Validate(), ErrInvalidPayload)
	assert.ErrorIs(t, GameUpdate{GameID: "g", Quarter: &q}.Validate(), ErrInvalidPayload)
	assert.ErrorIs(t, GameUpdate{GameID: "g", Status: "paused"}.Validate(), ErrInvalidPayload)
	assert.NoError(t, GameUpdate{GameID: "g", Status: GameFinal, FinalScore: &model.Score{Home: 14, Away: 7}}.Validate())
}

func TestDispatch_CreatePlay(t *testing.T) {
	r := &fakeRemote{resp: PlayResponse{PlayID: "play-1", PlayNumber: 3}}
	d := newDispatcher(r)

	err := d.Dispatch(context.Background(), action(t, model.ActionCreate, model.EntityPlay, samplePlay()))
	require.NoError(t, err)

	require.Len(t, r.plays, 1)
	assert.Equal(t, samplePlay(), r.plays[0])
}

func TestDispatch_IdempotentResponseIsSuccess(t *testing.T) {
	r := &fakeRemote{resp: PlayResponse{PlayID: "play-1", Idempotent: true, Message: "already applied"}}
	d := newDispatcher(r)

	err := d.Dispatch(context.Background(), action(t, model.ActionCreate, model.EntityPlay, samplePlay()))
	assert.NoError(t, err)
}

func TestDispatch_DeleteAndUpdate(t *testing.T) {
	r := &fakeRemote{}
	d := newDispatcher(r)
	ctx := context.Background()

	del := PlayDeletion{GameID: "g-1", IdempotencyKey: "key-3", PlayNumber: 3}
	require.NoError(t, d.Dispatch(ctx, action(t, model.ActionDelete, model.EntityPlay, del)))

	q := 3
	upd := GameUpdate{GameID: "g-1", Quarter: &q}
	require.NoError(t, d.Dispatch(ctx, action(t, model.ActionUpdate, model.EntityGame, upd)))

	assert.Equal(t, []PlayDeletion{del}, r.deletes)
	require.Len(t, r.updates, 1)
	assert.Equal(t, 3, *r.updates[0].Quarter)
}

func TestDispatch_RemoteErrorPropagates(t *testing.T) {
	boom := errors.New("503 service unavailable")
	d := newDispatcher(&fakeRemote{err: boom})

	err := d.Dispatch(context.Background(), action(t, model.ActionCreate, model.EntityPlay, samplePlay()))
	assert.ErrorIs(t, err, boom)
}

func TestDispatch_Unroutable(t *testing.T) {
	d := newDispatcher(&fakeRemote{})

	err := d.Dispatch(context.Background(), action(t, model.ActionUpdate, model.EntityPlay, samplePlay()))
	assert.ErrorIs(t, err, ErrUnroutable)
}

func TestDispatch_MalformedPayload(t *testing.T) {
	r := &fakeRemote{}
	d := newDispatcher(r)

	a := model.OfflineAction{ID: "a-1", Type: model.ActionCreate, Entity: model.EntityPlay, Payload: json.RawMessage(`{"bogus":1}`)}
	err := d.Dispatch(context.Background(), a)

	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, r.plays)
}
