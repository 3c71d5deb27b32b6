package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/config"
	"github.com/roach88/huddle/internal/remote"
)

const testGameFile = `
game:
  game_id: g-1
  opponent: Hawks
roster:
  - { id: "5", jersey: 5, name: Ava, eligible: true }
  - { id: "11", jersey: 11, name: Ben, eligible: true }
  - { id: "70", jersey: 70, name: Cal, eligible: false }
`

// cliEnv is a device database plus an optional remote acceptor.
type cliEnv struct {
	dir string
	db  string
	acc *remote.SQLiteAcceptor
	url string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{dir: dir, db: filepath.Join(dir, "device.db")}
}

// withRemote starts an acceptor behind an httptest server.
func (e *cliEnv) withRemote(t *testing.T) *cliEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acc, err := remote.OpenSQLite(filepath.Join(e.dir, "remote.db"), remote.WithAcceptorLogger(logger))
	require.NoError(t, err)
	srv := httptest.NewServer(remote.NewServer(acc, logger))
	t.Cleanup(func() {
		srv.Close()
		acc.Close()
	})
	e.acc = acc
	e.url = srv.URL
	return e
}

func (e *cliEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command offline.
func (e *cliEnv) run(args ...string) (string, error) {
	return execute(config.Env{DBPath: e.db}, args...)
}

// runOnline executes the root command with --remote set.
func (e *cliEnv) runOnline(args ...string) (string, error) {
	return execute(config.Env{DBPath: e.db, RemoteURL: e.url}, args...)
}

func execute(env config.Env, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(env)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func configEnv(db, remoteURL string) config.Env {
	return config.Env{DBPath: db, RemoteURL: remoteURL}
}
