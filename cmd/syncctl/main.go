// Command syncctl operates the sync engine from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/erp/syncengine/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
