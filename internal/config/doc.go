// Package config loads runtime configuration.
//
// Two sources exist:
//
//   - Environment: paths and endpoints (HUDDLE_DB, HUDDLE_REMOTE_URL,
//     HUDDLE_RULES, HUDDLE_LISTEN). A .env file in the working directory is
//     loaded first; real environment variables win over it.
//   - League rules: a CUE file validated against an embedded schema. Every
//     field has a default, so an empty file (or no file) is valid.
package config
