// Command huddle is the sideline scorekeeping CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/huddle/internal/cli"
	"github.com/roach88/huddle/internal/config"
)

func main() {
	cmd := cli.NewRootCommand(config.LoadEnv())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "huddle:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
