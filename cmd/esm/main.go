// Command esm drives and inspects the event state machine runtime.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/esm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
