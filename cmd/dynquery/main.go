// Command dynquery builds and runs dynamic queries from declarative
// requests.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dynquery/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dynquery:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
