// Command patchbay runs and inspects a patch control server.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/patchbay/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
