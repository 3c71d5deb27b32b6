package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/huddle/internal/syncproto"
)

// maxBodyBytes caps request bodies. A play submission is well under 4 KiB.
const maxBodyBytes = 1 << 20

// NewServer returns the HTTP handler for an Acceptor.
//
//	POST   /games/{gameID}/plays        submit a play (201 new, 200 idempotent)
//	GET    /games/{gameID}/plays        list live plays
//	DELETE /games/{gameID}/plays/{key}  retract a play by idempotency key (?play_number=N)
//	PATCH  /games/{gameID}              update quarter, final score, status
//	GET    /games/{gameID}              game record
//	GET    /healthz                     liveness
func NewServer(acc Acceptor, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", Healthz(acc))
	r.Route("/games/{gameID}", func(r chi.Router) {
		r.Get("/", GetGame(acc))
		r.Patch("/", UpdateGame(acc))
		r.Post("/plays", SubmitPlay(acc))
		r.Get("/plays", ListPlays(acc))
		r.Delete("/plays/{key}", DeletePlay(acc))
	})
	return r
}

// SubmitPlay accepts a play submission. A replayed key answers 200 instead of 201.
func SubmitPlay(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p syncproto.PlaySubmission
		if err := decodeBody(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		gameID := chi.URLParam(r, "gameID")
		if p.GameID == "" {
			p.GameID = gameID
		}
		if p.GameID != gameID {
			writeError(w, http.StatusBadRequest, "game_id does not match path")
			return
		}

		resp, err := acc.SubmitPlay(r.Context(), p)
		if err != nil {
			writeAcceptorError(w, err)
			return
		}
		status := http.StatusCreated
		if resp.Idempotent {
			status = http.StatusOK
		}
		writeJSON(w, status, resp)
	}
}

// ListPlays returns the live plays of a game.
func ListPlays(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plays, err := acc.Plays(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeAcceptorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plays)
	}
}

// DeletePlay retracts a play. The optional play_number query parameter is
// kept on the tombstone written for a key the acceptor has not seen.
func DeletePlay(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := syncproto.PlayDeletion{
			GameID:         chi.URLParam(r, "gameID"),
			IdempotencyKey: chi.URLParam(r, "key"),
		}
		if v := r.URL.Query().Get("play_number"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid play_number")
				return
			}
			d.PlayNumber = n
		}
		if err := acc.DeletePlay(r.Context(), d); err != nil {
			writeAcceptorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpdateGame applies a partial game update.
func UpdateGame(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u syncproto.GameUpdate
		if err := decodeBody(r, &u); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		gameID := chi.URLParam(r, "gameID")
		if u.GameID == "" {
			u.GameID = gameID
		}
		if u.GameID != gameID {
			writeError(w, http.StatusBadRequest, "game_id does not match path")
			return
		}
		if err := acc.UpdateGame(r.Context(), u); err != nil {
			writeAcceptorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetGame returns the game record, or 404.
func GetGame(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, found, err := acc.Game(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeAcceptorError(w, err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// Healthz answers 200 while the acceptor is reachable.
func Healthz(acc Acceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := acc.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeAcceptorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSubmission):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrKeyConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
