// Command herald is the CLI for the herald daemon: submit outreach
// campaigns, poll their progress, review drafted messages, and pull
// post-campaign reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
