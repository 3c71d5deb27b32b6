package remote

import (
	"context"
	"time"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/syncproto"
)

// Acceptor applies remote mutations. SQLiteAcceptor is the reference
// implementation; Server exposes any Acceptor over HTTP.
type Acceptor interface {
	syncproto.Remote
	Plays(ctx context.Context, gameID string) ([]PlayRecord, error)
	Game(ctx context.Context, gameID string) (GameRecord, bool, error)
	Ping(ctx context.Context) error
}

// PlayRecord is an accepted, live play.
type PlayRecord struct {
	ID             string            `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	GameID         string            `json:"game_id"`
	SessionID      string            `json:"session_id"`
	PlayNumber     int               `json:"play_number"`
	Quarter        int               `json:"quarter"`
	PlayType       model.Mode        `json:"play_type"`
	Result         model.Result      `json:"result"`
	Players        []model.PlayerID  `json:"players"`
	Extra          map[string]string `json:"extra,omitempty"`
	RecordedAt     time.Time         `json:"recorded_at"`
	AcceptedAt     time.Time         `json:"accepted_at"`
}

// GameRecord is the remote's view of a game.
type GameRecord struct {
	GameID     string       `json:"game_id"`
	Quarter    int          `json:"quarter,omitempty"`
	FinalScore *model.Score `json:"final_score,omitempty"`
	Status     string       `json:"status"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
