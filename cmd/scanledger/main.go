// Command scanledger keeps a deduplicated recycling scan history and syncs it
// with the shared impact log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scanledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
