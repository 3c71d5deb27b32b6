package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDB        = "HUDDLE_DB"
	EnvRemoteURL = "HUDDLE_REMOTE_URL"
	EnvRules     = "HUDDLE_RULES"
	EnvListen    = "HUDDLE_LISTEN"
)

// Defaults used when a variable is unset.
const (
	DefaultDB     = "huddle.db"
	DefaultListen = ":8080"
)

// Env is the environment-derived configuration.
type Env struct {
	DBPath    string // device database
	RemoteURL string // remote acceptor base URL; empty means no remote
	RulesPath string // league rules CUE file; empty means defaults
	Listen    string // address for `huddle serve`
}

// LoadEnv reads the environment after loading the given dotenv files
// (".env" when none are named). Missing files are ignored: in the field the
// variables, or the flags, are the source of truth.
func LoadEnv(files ...string) Env {
	_ = godotenv.Load(files...)

	return Env{
		DBPath:    getenv(EnvDB, DefaultDB),
		RemoteURL: os.Getenv(EnvRemoteURL),
		RulesPath: os.Getenv(EnvRules),
		Listen:    getenv(EnvListen, DefaultListen),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
