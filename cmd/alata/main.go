// Command alata is the Alata Craft point-of-sale CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/alata/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
