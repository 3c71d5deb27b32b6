package remote

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/huddle/internal/idempotency"
	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/syncproto"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteAcceptor is an Acceptor backed by a SQLite database.
// Safe for concurrent use; SQLite serializes the writes.
type SQLiteAcceptor struct {
	db     *sql.DB
	ids    idempotency.KeyGenerator
	now    func() time.Time
	logger *slog.Logger
}

// AcceptorOption configures a SQLiteAcceptor.
type AcceptorOption func(*SQLiteAcceptor)

// WithPlayIDs overrides play id generation. Default: UUIDv7.
func WithPlayIDs(g idempotency.KeyGenerator) AcceptorOption {
	return func(a *SQLiteAcceptor) { a.ids = g }
}

// WithAcceptorClock overrides the clock used for accepted_at/updated_at.
func WithAcceptorClock(now func() time.Time) AcceptorOption {
	return func(a *SQLiteAcceptor) { a.now = now }
}

// WithAcceptorLogger sets the logger. Default: slog.Default().
func WithAcceptorLogger(l *slog.Logger) AcceptorOption {
	return func(a *SQLiteAcceptor) { a.logger = l }
}

// OpenSQLite opens or creates an acceptor database at path.
// ":memory:" gives a private in-process acceptor.
func OpenSQLite(path string, opts ...AcceptorOption) (*SQLiteAcceptor, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open acceptor: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("open acceptor: %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("open acceptor: schema: %w", err)
	}

	a := &SQLiteAcceptor{
		db:     db,
		ids:    idempotency.UUIDv7Generator{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close closes the database.
func (a *SQLiteAcceptor) Close() error {
	return a.db.Close()
}

// SubmitPlay applies p at most once per idempotency key.
// Uses INSERT ... ON CONFLICT DO NOTHING and, on conflict, returns the stored
// record, all in one transaction.
func (a *SQLiteAcceptor) SubmitPlay(ctx context.Context, p syncproto.PlaySubmission) (syncproto.PlayResponse, error) {
	if err := p.Validate(); err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	fingerprint, err := p.Fingerprint()
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: %w", err)
	}
	players, err := json.Marshal(p.Players)
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: players: %w", err)
	}
	extra := p.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: extra: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	playID := a.ids.Generate()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO plays
		(id, idempotency_key, fingerprint, game_id, session_id, play_number, quarter,
		 play_type, result, players, extra, recorded_at, accepted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING
	`,
		playID,
		p.IdempotencyKey,
		fingerprint,
		p.GameID,
		p.SessionID,
		p.PlayNumber,
		p.Quarter,
		string(p.PlayType),
		string(p.Result),
		string(players),
		string(extraJSON),
		formatTime(p.RecordedAt),
		formatTime(a.now()),
	)
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: insert: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: rows affected: %w", err)
	}

	if inserted > 0 {
		if err := tx.Commit(); err != nil {
			return syncproto.PlayResponse{}, fmt.Errorf("submit play: commit: %w", err)
		}
		a.logger.Info("play accepted", "game_id", p.GameID, "play_number", p.PlayNumber, "key", p.IdempotencyKey)
		return syncproto.PlayResponse{PlayID: playID, PlayNumber: p.PlayNumber}, nil
	}

	// Conflict: the key was seen before.
	var (
		existingID     string
		existingNumber int
		existingFP     string
		deletedAt      sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, play_number, fingerprint, deleted_at FROM plays
		WHERE idempotency_key = ?
	`, p.IdempotencyKey).Scan(&existingID, &existingNumber, &existingFP, &deletedAt)
	if err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: select existing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return syncproto.PlayResponse{}, fmt.Errorf("submit play: commit (existing): %w", err)
	}

	resp := syncproto.PlayResponse{PlayID: existingID, PlayNumber: existingNumber, Idempotent: true}
	switch {
	case existingFP == "":
		resp.PlayNumber = p.PlayNumber
		resp.Message = "play was deleted before it arrived"
	case existingFP != fingerprint:
		return syncproto.PlayResponse{}, fmt.Errorf("submit play %s: %w", p.IdempotencyKey, ErrKeyConflict)
	case deletedAt.Valid:
		resp.Message = "play already applied and since deleted"
	default:
		resp.Message = "play already applied"
	}
	a.logger.Info("duplicate submission absorbed", "key", p.IdempotencyKey, "play_id", existingID)
	return resp, nil
}

// DeletePlay retracts the play with the given key. Deleting an already
// deleted play succeeds. Deleting a key that was never seen records a
// tombstone.
func (a *SQLiteAcceptor) DeletePlay(ctx context.Context, d syncproto.PlayDeletion) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete play: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := formatTime(a.now())

	var gameID string
	err = tx.QueryRowContext(ctx, `SELECT game_id FROM plays WHERE idempotency_key = ?`, d.IdempotencyKey).Scan(&gameID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO plays
			(id, idempotency_key, fingerprint, game_id, session_id, play_number, quarter,
			 play_type, result, players, extra, recorded_at, accepted_at, deleted_at)
			VALUES (?, ?, '', ?, '', ?, 0, '', '', '[]', '{}', '', ?, ?)
		`, a.ids.Generate(), d.IdempotencyKey, d.GameID, d.PlayNumber, now, now)
		if err != nil {
			return fmt.Errorf("delete play: tombstone: %w", err)
		}
		a.logger.Info("tombstone recorded", "game_id", d.GameID, "key", d.IdempotencyKey)
	case err != nil:
		return fmt.Errorf("delete play: select: %w", err)
	case gameID != d.GameID:
		return fmt.Errorf("delete play %s: belongs to game %s: %w", d.IdempotencyKey, gameID, ErrKeyConflict)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE plays SET deleted_at = ?
			WHERE idempotency_key = ? AND deleted_at IS NULL
		`, now, d.IdempotencyKey); err != nil {
			return fmt.Errorf("delete play: update: %w", err)
		}
		a.logger.Info("play deleted", "game_id", d.GameID, "key", d.IdempotencyKey)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete play: commit: %w", err)
	}
	return nil
}

// UpdateGame upserts game-level fields. Fields left nil keep their value,
// so replaying an update is harmless.
func (a *SQLiteAcceptor) UpdateGame(ctx context.Context, u syncproto.GameUpdate) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	var quarter, home, away, status any
	if u.Quarter != nil {
		quarter = *u.Quarter
	}
	if u.FinalScore != nil {
		home, away = u.FinalScore.Home, u.FinalScore.Away
	}
	if u.Status != "" {
		status = u.Status
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO games (game_id, quarter, home_score, away_score, status, updated_at)
		VALUES (?, ?, ?, ?, COALESCE(?, 'in_progress'), ?)
		ON CONFLICT(game_id) DO UPDATE SET
			quarter    = COALESCE(excluded.quarter, games.quarter),
			home_score = COALESCE(excluded.home_score, games.home_score),
			away_score = COALESCE(excluded.away_score, games.away_score),
			status     = COALESCE(?, games.status),
			updated_at = excluded.updated_at
	`, u.GameID, quarter, home, away, status, formatTime(a.now()), status)
	if err != nil {
		return fmt.Errorf("update game %s: %w", u.GameID, err)
	}

	a.logger.Info("game updated", "game_id", u.GameID, "quarter", quarter, "status", status)
	return nil
}

// Plays returns the live plays of a game in acceptance order.
func (a *SQLiteAcceptor) Plays(ctx context.Context, gameID string) ([]PlayRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, idempotency_key, game_id, session_id, play_number, quarter,
		       play_type, result, players, extra, recorded_at, accepted_at
		FROM plays
		WHERE game_id = ? AND deleted_at IS NULL
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	defer rows.Close()

	out := []PlayRecord{}
	for rows.Next() {
		var (
			r                                PlayRecord
			playType, result, players, extra string
			recordedAt, acceptedAt           string
		)
		if err := rows.Scan(&r.ID, &r.IdempotencyKey, &r.GameID, &r.SessionID, &r.PlayNumber, &r.Quarter,
			&playType, &result, &players, &extra, &recordedAt, &acceptedAt); err != nil {
			return nil, fmt.Errorf("list plays: scan: %w", err)
		}
		r.PlayType = model.Mode(playType)
		r.Result = model.Result(result)
		if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
			return nil, fmt.Errorf("list plays: players of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
			return nil, fmt.Errorf("list plays: extra of %s: %w", r.ID, err)
		}
		if len(r.Extra) == 0 {
			r.Extra = nil
		}
		if r.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("list plays: %w", err)
		}
		if r.AcceptedAt, err = parseTime(acceptedAt); err != nil {
			return nil, fmt.Errorf("list plays: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	return out, nil
}

// Game returns the game record. found is false if no update has arrived yet.
func (a *SQLiteAcceptor) Game(ctx context.Context, gameID string) (GameRecord, bool, error) {
	var (
		g          GameRecord
		quarter    sql.NullInt64
		home, away sql.NullInt64
		updatedAt  string
	)
	err := a.db.QueryRowContext(ctx, `
		SELECT game_id, quarter, home_score, away_score, status, updated_at
		FROM games WHERE game_id = ?
	`, gameID).Scan(&g.GameID, &quarter, &home, &away, &g.Status, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return GameRecord{}, false, nil
	}
	if err != nil {
		return GameRecord{}, false, fmt.Errorf("get game %s: %w", gameID, err)
	}

	g.Quarter = int(quarter.Int64)
	if home.Valid && away.Valid {
		g.FinalScore = &model.Score{Home: int(home.Int64), Away: int(away.Int64)}
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return GameRecord{}, false, fmt.Errorf("get game %s: %w", gameID, err)
	}
	return g, true, nil
}

// Ping checks that the database is reachable.
func (a *SQLiteAcceptor) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
