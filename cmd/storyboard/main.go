// Command storyboard compiles, runs, traces and replays storyboard
// scenarios against scripted traffic.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/storyboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
